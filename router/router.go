package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/controllers"
	"github.com/yeremiapane/fuji-pos/metrics"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/services"
)

// Dependencies are the shared services the routes are built from.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Evaluator *permissions.Evaluator
	Orders    *services.OrderService
	Payments  *services.PaymentService
	Menu      *services.MenuService
	Analytics *services.AnalyticsService
	Receipts  *services.ReceiptService
}

// NewDependencies builds every service over one database and cache. gateway may be nil.
func NewDependencies(db *gorm.DB, cfg *config.Config, store cache.Store, gateway services.PaymentGateway, sink permissions.AuditSink) Dependencies {
	orders := services.NewOrderService(db, cfg.Settings)
	return Dependencies{
		DB:        db,
		Config:    cfg,
		Evaluator: permissions.NewEvaluator(permissions.NewMatrix(), sink),
		Orders:    orders,
		Payments:  services.NewPaymentService(db, orders, gateway, cfg.Settings),
		Menu:      services.NewMenuService(db, store, cfg.Settings),
		Analytics: services.NewAnalyticsService(db, store, cfg.Settings),
		Receipts:  services.NewReceiptService(db, cfg.Settings, cfg.RestaurantName),
	}
}

func SetupRouter(d Dependencies) *gin.Engine {
	middlewares.RegisterValidators()

	r := gin.New()
	r.Use(middlewares.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(d.Config.IsProduction()))
	r.Use(middlewares.CORSMiddleware(d.Config.AllowedOrigins, d.Config.IsProduction()))
	r.Use(metrics.Middleware())

	ev := d.Evaluator
	need := func(perms ...permissions.Permission) gin.HandlerFunc {
		return middlewares.RequirePermission(ev, perms...)
	}

	userCtrl := controllers.NewUserController(d.DB, ev.Matrix)
	permCtrl := controllers.NewPermissionController(d.DB, ev)
	tableCtrl := controllers.NewTableController(d.DB)
	menuCtrl := controllers.NewMenuController(d.Menu)
	orderCtrl := controllers.NewOrderController(d.Orders, ev)
	paymentCtrl := controllers.NewPaymentController(d.Payments)
	analyticsCtrl := controllers.NewAnalyticsController(d.Analytics)
	reportCtrl := controllers.NewReportController(d.Analytics, d.Config.RestaurantName)
	receiptCtrl := controllers.NewReceiptController(d.Receipts)
	var wsOrigins []string
	if d.Config.IsProduction() {
		wsOrigins = d.Config.AllowedOrigins
	}
	kdsCtrl := controllers.NewKDSController(ev, wsOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", metrics.Handler())

	loginLimiter := middlewares.NewStrictRateLimiter()
	r.POST("/api/auth/login", loginLimiter.RateLimit(), userCtrl.Login)

	// signed gateway callback
	r.POST("/api/payments/notifications", middlewares.PaymentSecurityHeaders(), paymentCtrl.HandleNotification)

	r.GET("/ws/kds", middlewares.WebSocketAuthMiddleware(), kdsCtrl.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.NewRateLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst).RateLimit())
	api.Use(middlewares.AuthMiddleware())

	auth := api.Group("/auth")
	{
		auth.POST("/logout", userCtrl.Logout)
		auth.GET("/me", userCtrl.Me)
	}

	users := api.Group("/users")
	{
		users.GET("", need(permissions.UsersViewAll), userCtrl.ListUsers)
		users.POST("", need(permissions.UsersCreate), userCtrl.CreateUser)
		users.GET("/:id", need(permissions.UsersRead), userCtrl.GetUser)
		users.PUT("/:id", need(permissions.UsersUpdate), userCtrl.UpdateUser)
		users.DELETE("/:id", need(permissions.UsersDelete), userCtrl.DeleteUser)
	}

	perms := api.Group("/permissions")
	{
		perms.GET("/me", permCtrl.Mine)
		perms.GET("/route", permCtrl.CheckRoute)
	}
	api.GET("/admin/audit-logs", need(permissions.SystemAuditLogs), permCtrl.AuditLogs)

	menu := api.Group("/menu")
	{
		menu.GET("/categories", need(permissions.MenuRead), menuCtrl.GetAllCategories)
		menu.POST("/categories", need(permissions.MenuManageCategories), menuCtrl.CreateCategory)
		menu.PUT("/categories/:id", need(permissions.MenuManageCategories), menuCtrl.UpdateCategory)
		menu.DELETE("/categories/:id", need(permissions.MenuManageCategories), menuCtrl.DeleteCategory)

		menu.GET("/items", need(permissions.MenuRead), menuCtrl.GetAllMenus)
		menu.GET("/items/:id", need(permissions.MenuRead), menuCtrl.GetMenuByID)
		menu.GET("/items/:id/price", need(permissions.MenuRead), menuCtrl.GetPrice)
		menu.POST("/items", need(permissions.MenuCreate), menuCtrl.CreateMenu)
		menu.PUT("/items/:id", need(permissions.MenuUpdate), menuCtrl.UpdateMenu)
		menu.DELETE("/items/:id", need(permissions.MenuDelete), menuCtrl.DeleteMenu)
		menu.PATCH("/items/:id/availability", need(permissions.MenuToggleAvailability), menuCtrl.SetAvailability)
		menu.POST("/items/:id/modifiers", need(permissions.MenuUpdate), menuCtrl.LinkModifier)
		menu.POST("/bulk-update", need(permissions.MenuUpdatePricing), menuCtrl.BulkUpdate)

		menu.GET("/modifiers", need(permissions.MenuRead), menuCtrl.GetModifiers)
		menu.POST("/modifiers", need(permissions.MenuCreate), menuCtrl.CreateModifier)
	}

	tables := api.Group("/tables")
	{
		tables.GET("", need(permissions.OrdersRead), tableCtrl.GetAllTables)
		tables.POST("", need(permissions.SystemSettings), tableCtrl.CreateTable)
		tables.PUT("/:id", need(permissions.SystemSettings), tableCtrl.UpdateTable)
	}

	orders := api.Group("/orders")
	{
		orders.GET("", need(permissions.OrdersRead), orderCtrl.GetAllOrders)
		orders.GET("/active", need(permissions.OrdersRead), orderCtrl.GetActiveOrders)
		orders.GET("/:id", need(permissions.OrdersRead), orderCtrl.GetOrderByID)
		orders.GET("/:id/estimate", need(permissions.OrdersRead), orderCtrl.GetEstimate)

		orders.POST("", need(permissions.OrdersCreate), orderCtrl.CreateOrder)
		orders.POST("/:id/items", need(permissions.OrdersUpdate, permissions.OrdersCreate), orderCtrl.AddItems)
		orders.DELETE("/:id/items/:item_id", need(permissions.OrdersUpdate, permissions.OrdersCreate), orderCtrl.RemoveItem)
		orders.PATCH("/:id/status", need(permissions.OrdersUpdate, permissions.KitchenUpdateStatus), orderCtrl.UpdateStatus)
		orders.POST("/:id/send", need(permissions.OrdersUpdate, permissions.OrdersCreate), orderCtrl.SendToKitchen)
		orders.POST("/:id/transfer", need(permissions.OrdersTransfer), orderCtrl.Transfer)
		orders.POST("/:id/split", need(permissions.OrdersSplit), orderCtrl.Split)
		orders.POST("/:id/discount", need(permissions.OrdersUpdate), orderCtrl.ApplyDiscount)
		orders.POST("/:id/calculate", need(permissions.OrdersUpdate), orderCtrl.Calculate)
		orders.GET("/:id/receipt", need(permissions.OrdersRead), receiptCtrl.GetReceipt)
		orders.POST("/:id/receipt/print", need(permissions.OrdersRead), receiptCtrl.LogPrint)
	}
	api.PATCH("/order-items/:id/status", need(permissions.KitchenUpdateStatus), orderCtrl.UpdateItemStatus)
	api.GET("/kitchen/queue", need(permissions.KitchenViewOrders), orderCtrl.GetKitchenQueue)

	payments := api.Group("/payments")
	payments.Use(middlewares.PaymentSecurityHeaders(), middlewares.LogPaymentRequest())
	{
		payments.POST("/cash", need(permissions.PaymentsProcess), paymentCtrl.ProcessCash)
		payments.POST("/intents", need(permissions.PaymentsProcess), paymentCtrl.CreateIntent)
		payments.POST("/:id/confirm", need(permissions.PaymentsProcess), paymentCtrl.Confirm)
		payments.POST("/:id/refund", need(permissions.PaymentsRefund), paymentCtrl.Refund)
		payments.GET("/order/:order_id", need(permissions.PaymentsProcess, permissions.PaymentsViewHistory), paymentCtrl.GetOrderPayments)
	}

	api.GET("/receipts", need(permissions.PaymentsViewHistory, permissions.ReportsViewDaily), receiptCtrl.ListReceipts)

	analytics := api.Group("/analytics")
	{
		analytics.GET("/dashboard", need(permissions.AnalyticsViewDashboard), analyticsCtrl.GetDashboardStats)
		analytics.GET("/categories", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetCategories)
		analytics.GET("/items", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetItems)
		analytics.GET("/servers", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetServers)
		analytics.GET("/hourly", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetHourly)
		analytics.GET("/daily", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetDaily)
		analytics.GET("/profitability", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetProfitability)
		analytics.GET("/voids", need(permissions.AnalyticsViewDetailed), analyticsCtrl.GetVoids)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/end-of-day", need(permissions.ReportsViewDaily), reportCtrl.EndOfDay)
		reports.GET("/export", need(permissions.ReportsExport), reportCtrl.Export)
	}

	return r
}
