package services

import (
	"context"
	"errors"

	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

const credentialsMessage = "could not validate credentials"

// TokenVerifier is the part of the token service the resolver needs.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// IdentityResolver turns a bearer token into the user it was issued to.
type IdentityResolver struct {
	DB     *gorm.DB
	Tokens TokenVerifier
}

func NewIdentityResolver(db *gorm.DB, tokens TokenVerifier) *IdentityResolver {
	return &IdentityResolver{DB: db, Tokens: tokens}
}

// Resolve fails with unauthenticated for a bad token and for a token whose
// subject no longer exists.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, utils.NewError(utils.KindUnauthenticated, credentialsMessage)
	}

	userID, err := r.Tokens.Verify(token)
	if err != nil {
		return nil, utils.NewError(utils.KindUnauthenticated, credentialsMessage)
	}

	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.KindUnauthenticated, credentialsMessage)
		}
		return nil, utils.Internal(err)
	}
	return &user, nil
}
