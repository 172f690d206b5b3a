package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/middlewares"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
)

type AdminController struct {
	Dashboard *services.Dashboard
}

func NewAdminController(dashboard *services.Dashboard) *AdminController {
	return &AdminController{Dashboard: dashboard}
}

// GetDashboardStats returns the overview counters for the admin UI.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Dashboard.Stats(c.Request.Context(), middlewares.CurrentUser(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}
