package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yeremiapane/homebites/metrics"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

const (
	loginFailedMessage = "incorrect phone number or password"
	dummyPassword      = "homebites-placeholder-password"
)

// TokenIssuer is the part of the token service login needs.
type TokenIssuer interface {
	Issue(subjectID uint) (string, time.Time, error)
}

type UserService struct {
	DB     *gorm.DB
	Tokens TokenIssuer
	Hasher *utils.PasswordHasher

	// dummyHash is compared against when the phone number is unknown so both
	// login failures cost the same.
	dummyHash string
}

func NewUserService(db *gorm.DB, tokens TokenIssuer, hasher *utils.PasswordHasher) *UserService {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		utils.ErrorLogger.Errorf("user service: dummy hash at cost %d: %v", hasher.Cost, err)
		dummy, err = utils.NewPasswordHasher(0).Hash(dummyPassword)
		if err != nil {
			utils.ErrorLogger.Errorf("user service: dummy hash at default cost: %v", err)
		}
	}
	return &UserService{DB: db, Tokens: tokens, Hasher: hasher, dummyHash: dummy}
}

type NewUser struct {
	Name        string
	PhoneNumber string
	Email       string
	Password    string
	Role        string
	Address     string
	City        string
}

// UserUpdate holds optional changes; nil fields are left alone.
type UserUpdate struct {
	Name        *string
	PhoneNumber *string
	Email       *string
	Password    *string
	Role        *string
	Address     *string
	City        *string
}

type LoginResult struct {
	Token     string               `json:"token"`
	TokenType string               `json:"token_type"`
	ExpiresAt time.Time            `json:"expires_at"`
	User      models.PublicProfile `json:"user"`
}

// Register creates a regular user. The role is never taken from the caller.
func (s *UserService) Register(ctx context.Context, in NewUser) (*models.User, error) {
	in.Role = models.RoleUser
	return s.create(ctx, in)
}

// CreateUser lets an admin create a user with any role.
func (s *UserService) CreateUser(ctx context.Context, caller *models.User, in NewUser) (*models.User, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	return s.create(ctx, in)
}

// Bootstrap creates an admin without a caller. Used by the CLI.
func (s *UserService) Bootstrap(ctx context.Context, in NewUser) (*models.User, error) {
	in.Role = models.RoleAdmin
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in NewUser) (*models.User, error) {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.PhoneNumber == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, utils.NewError(utils.KindValidation, "name, phone_number and password are required")
	}
	if err := validateRole(in.Role); err != nil {
		return nil, err
	}

	hashed, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, utils.Internal(err)
	}

	user := models.User{
		Name:        in.Name,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
		Password:    hashed,
		Role:        in.Role,
		Address:     in.Address,
		City:        in.City,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireFreePhone(tx, in.PhoneNumber, 0); err != nil {
			return err
		}
		return dbError(tx.Create(&user).Error)
	})
	if err != nil {
		return nil, phoneConflict(err)
	}

	utils.InfoLogger.WithField("user_id", user.ID).Infof("user created (role=%s)", user.Role)
	return &user, nil
}

// Login checks credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, phoneNumber, password string) (*LoginResult, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("phone_number = ?", strings.TrimSpace(phoneNumber)).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Internal(err)
		}
		s.Hasher.Check(s.dummyHash, password)
		metrics.AuthFailures.WithLabelValues("login").Inc()
		return nil, utils.NewError(utils.KindUnauthenticated, loginFailedMessage)
	}

	if !s.Hasher.Check(user.Password, password) {
		metrics.AuthFailures.WithLabelValues("login").Inc()
		return nil, utils.NewError(utils.KindUnauthenticated, loginFailedMessage)
	}

	token, expiresAt, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, utils.Internal(err)
	}

	return &LoginResult{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
		User:      user.Profile(),
	}, nil
}

// Get returns a user to themselves or an admin.
func (s *UserService) Get(ctx context.Context, caller *models.User, userID uint) (*models.User, error) {
	if err := RequireSelfOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	var user models.User
	if err := findUser(s.DB.WithContext(ctx), userID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, caller *models.User) ([]models.User, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := s.DB.WithContext(ctx).Order("user_id").Find(&users).Error; err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

// Update applies changes for the user themselves or an admin. Only admins may
// change roles.
func (s *UserService) Update(ctx context.Context, caller *models.User, userID uint, in UserUpdate) (*models.User, error) {
	if err := RequireSelfOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	if in.Role != nil {
		if err := RequireRole(caller, models.RoleAdmin); err != nil {
			return nil, utils.NewError(utils.KindForbidden, "only an admin can change roles")
		}
		if err := validateRole(*in.Role); err != nil {
			return nil, err
		}
	}

	var hashed string
	if in.Password != nil {
		if *in.Password == "" {
			return nil, utils.NewError(utils.KindValidation, "password must not be empty")
		}
		var err error
		if hashed, err = s.Hasher.Hash(*in.Password); err != nil {
			return nil, utils.Internal(err)
		}
	}

	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findUser(tx, userID, &user); err != nil {
			return err
		}
		if in.PhoneNumber != nil {
			phone := strings.TrimSpace(*in.PhoneNumber)
			if phone == "" {
				return utils.NewError(utils.KindValidation, "phone_number must not be empty")
			}
			if err := requireFreePhone(tx, phone, user.ID); err != nil {
				return err
			}
			user.PhoneNumber = phone
		}
		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Email != nil {
			user.Email = *in.Email
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.Address != nil {
			user.Address = *in.Address
		}
		if in.City != nil {
			user.City = *in.City
		}
		if hashed != "" {
			user.Password = hashed
		}
		return dbError(tx.Save(&user).Error)
	})
	if err != nil {
		return nil, phoneConflict(err)
	}
	return &user, nil
}

// Delete removes a user that no order references. Admin only.
func (s *UserService) Delete(ctx context.Context, caller *models.User, userID uint) error {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := findUser(tx, userID, &user); err != nil {
			return err
		}
		var orders int64
		if err := tx.Model(&models.Order{}).Where("user_id = ?", userID).Count(&orders).Error; err != nil {
			return dbError(err)
		}
		if orders > 0 {
			return utils.NewError(utils.KindConflict, "user %d still has %d orders", userID, orders)
		}
		return dbError(tx.Delete(&models.User{}, userID).Error)
	})
}

func findUser(db *gorm.DB, userID uint, out *models.User) error {
	if err := db.First(out, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewError(utils.KindNotFound, "user %d not found", userID)
		}
		return dbError(err)
	}
	return nil
}

func requireFreePhone(db *gorm.DB, phone string, exceptID uint) error {
	var count int64
	err := db.Model(&models.User{}).
		Where("phone_number = ? AND user_id <> ?", phone, exceptID).
		Count(&count).Error
	if err != nil {
		return dbError(err)
	}
	if count > 0 {
		return utils.NewError(utils.KindConflict, "phone number already exists")
	}
	return nil
}

// phoneConflict rewords a unique-index violation that slipped past the
// pre-check because of a concurrent insert.
func phoneConflict(err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) && appErr.Kind == utils.KindConflict && appErr.Err != nil {
		return &utils.AppError{Kind: utils.KindConflict, Message: "phone number already exists", Err: appErr.Err}
	}
	return err
}

func validateRole(role string) error {
	if role != models.RoleAdmin && role != models.RoleUser {
		return utils.NewError(utils.KindValidation, "role must be admin or user")
	}
	return nil
}
