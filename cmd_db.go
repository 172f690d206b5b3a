package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/homebites/config"
	"github.com/yeremiapane/homebites/database"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

// boot loads config, configures logging and opens the database.
func boot() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

// homebites migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		return database.Migrate(db)
	},
}

var adminInput services.NewUser

// homebites create-admin
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin user",
	Long:  "Public registration only ever creates regular users; use this to bootstrap the first admin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminInput.Password == "" {
			return errors.New("--password is required")
		}
		cfg, db, err := boot()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}

		tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
		users := services.NewUserService(db, tokens, utils.NewPasswordHasher(cfg.BcryptCost))
		user, err := users.Bootstrap(context.Background(), adminInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %q created with id %d\n", user.Name, user.ID)
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&adminInput.Name, "name", "admin", "display name")
	f.StringVar(&adminInput.PhoneNumber, "phone", "", "phone number used to log in")
	f.StringVar(&adminInput.Email, "email", "", "email address")
	f.StringVar(&adminInput.Password, "password", "", "initial password")
	_ = createAdminCmd.MarkFlagRequired("phone")
}
