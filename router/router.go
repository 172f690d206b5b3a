package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/config"
	"github.com/yeremiapane/homebites/controllers"
	"github.com/yeremiapane/homebites/feed"
	"github.com/yeremiapane/homebites/metrics"
	"github.com/yeremiapane/homebites/middlewares"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter wires services, controllers and middlewares into one engine.
// hub receives every committed order event.
func SetupRouter(cfg *config.Config, db *gorm.DB, hub *feed.Hub) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.Metrics())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSAllowedOrigins))
	if cfg.RateLimitRPS > 0 {
		r.Use(middlewares.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst).RateLimit())
	}

	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	resolver := services.NewIdentityResolver(db, tokens)

	userCtrl := controllers.NewUserController(services.NewUserService(db, tokens, hasher))
	itemCtrl := controllers.NewItemController(services.NewCatalog(db))
	orderCtrl := controllers.NewOrderController(services.NewOrderLedger(db, hub, cfg.Location))
	adminCtrl := controllers.NewAdminController(services.NewDashboard(db))
	feedCtrl := controllers.NewFeedController(hub, cfg.CORSAllowedOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter(cfg.AuthRatePerMinute).RateLimit())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/items", itemCtrl.GetAllItems)
	r.GET("/items/:item_id", itemCtrl.GetItemByID)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware(resolver))

	auth.GET("/me", userCtrl.Me)
	auth.GET("/users/:user_id", userCtrl.GetUser)
	auth.PUT("/users/:user_id", userCtrl.UpdateUser)
	auth.GET("/users/:user_id/orders", orderCtrl.GetUserOrders)

	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.POST("/orders/complete", orderCtrl.CreateCompleteOrder)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.GET("/orders/:order_id/complete", orderCtrl.GetCompleteOrder)
	auth.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := auth.Group("/")
	admin.Use(middlewares.RoleCheck(models.RoleAdmin))

	admin.GET("/users", userCtrl.GetAllUsers)
	admin.POST("/users", userCtrl.CreateUser)
	admin.DELETE("/users/:user_id", userCtrl.DeleteUser)

	admin.POST("/items", itemCtrl.CreateItem)
	admin.PUT("/items/:item_id", itemCtrl.UpdateItem)
	admin.DELETE("/items/:item_id", itemCtrl.DeleteItem)

	admin.GET("/orders", orderCtrl.GetAllOrders)
	admin.GET("/orders/status/:status", orderCtrl.GetOrdersByStatus)
	admin.PUT("/orders/:order_id", orderCtrl.UpdateOrder)
	admin.DELETE("/orders/:order_id", orderCtrl.DeleteOrder)

	admin.GET("/admin/stats", adminCtrl.GetDashboardStats)

	// Browsers cannot send headers on a websocket handshake.
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware(resolver))
	{
		ws.GET("/orders", feedCtrl.OrdersFeed)
	}

	return r
}
