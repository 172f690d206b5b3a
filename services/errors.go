package services

import (
	"errors"

	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

// dbError converts a persistence failure into the error taxonomy. Errors
// that already carry a kind pass through untouched.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &utils.AppError{Kind: utils.KindConflict, Message: "record already exists", Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &utils.AppError{Kind: utils.KindReferential, Message: "referenced record does not exist", Err: err}
	default:
		return utils.Internal(err)
	}
}
