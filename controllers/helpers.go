package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/utils"
)

// paramID parses a positive numeric path parameter. On failure it writes a
// validation error and returns false.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, utils.NewError(utils.KindValidation, "%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}
