package services

import (
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
)

// RequireRole fails with forbidden unless user has exactly role.
func RequireRole(user *models.User, role string) error {
	if user == nil {
		return utils.NewError(utils.KindUnauthenticated, credentialsMessage)
	}
	if user.Role != role {
		return utils.NewError(utils.KindForbidden, "%s access required", role)
	}
	return nil
}

// RequireSelfOrAdmin fails with forbidden unless user owns the resource or
// is an admin.
func RequireSelfOrAdmin(user *models.User, ownerID uint) error {
	if user == nil {
		return utils.NewError(utils.KindUnauthenticated, credentialsMessage)
	}
	if user.ID == ownerID || user.Role == models.RoleAdmin {
		return nil
	}
	return utils.NewError(utils.KindForbidden, "not permitted to access this resource")
}
