package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/controllers"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
)

func main() {
	log.Println("Starting NFC venue manager API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetConfig(cfg)

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// External service clients
	services.InitSMSService()
	services.InitPaymentService()
	if _, err := services.InitS3Service(); err != nil {
		log.Printf("S3 service unavailable, image uploads disabled: %v", err)
	}

	router := setupRouter(cfg)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if cfg.FrontendURL != "" {
		corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	staffAuth := middleware.AuthenticateStaff(cfg)
	customerAuth := middleware.AuthenticateOnlineCustomer(cfg)

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck)
		api.GET("/database/status", databaseStatus)

		auth := api.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/forgot-password", controllers.ForgotPassword)
			auth.POST("/reset-password", controllers.ResetPassword)
			auth.POST("/register", staffAuth, controllers.RegisterStaff)
		}

		online := api.Group("/online")
		{
			online.POST("/register", controllers.RegisterOnlineCustomer)
			online.POST("/verify-phone", controllers.VerifyPhone)
			online.POST("/login", controllers.LoginOnlineCustomer)
			online.POST("/forgot-password", controllers.ForgotCustomerPassword)
			online.POST("/reset-password", controllers.ResetCustomerPassword)
		}

		profile := api.Group("/profile", customerAuth)
		{
			profile.GET("", controllers.GetProfile)
			profile.PATCH("", controllers.UpdateProfile)
			profile.POST("/addresses", controllers.AddAddress)
			profile.PATCH("/addresses/:addressId", controllers.UpdateAddress)
			profile.DELETE("/addresses/:addressId", controllers.DeleteAddress)
			profile.GET("/orders", controllers.GetMyOrders)
			profile.GET("/orders/:id", controllers.GetMyOrder)
		}

		customers := api.Group("/customers", staffAuth)
		{
			customers.POST("",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleRechargerAdmin, models.RoleRecharger),
				controllers.CreateNFCCustomer)
			customers.POST("/:id/recharge",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleRechargerAdmin, models.RoleRecharger),
				controllers.RechargeCustomer)
			customers.GET("",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleRechargerAdmin),
				controllers.GetCustomers)
			customers.GET("/lookup", controllers.GetCustomerByCardOrPhone)
			customers.DELETE("/:id",
				middleware.RequireRoles(models.RoleMasterAdmin),
				controllers.DeleteCustomer)
			customers.POST("/:id/remove-card",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleRechargerAdmin),
				controllers.RemoveCard)
			customers.POST("/:id/add-card",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleRechargerAdmin),
				controllers.AddCard)
		}

		stalls := api.Group("/stalls", staffAuth)
		{
			stalls.POST("",
				middleware.RequireRoles(models.RoleMasterAdmin),
				controllers.CreateStall)
			stalls.GET("",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleRechargerAdmin),
				controllers.GetStalls)
			stalls.GET("/:id", controllers.GetStall)
			stalls.PATCH("/:id",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleStallAdmin),
				controllers.UpdateStall)
			stalls.POST("/:id/menu",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleStallAdmin),
				controllers.AddMenuItem)
			stalls.PATCH("/:id/menu/:itemId",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleStallAdmin),
				controllers.UpdateMenuItem)
			stalls.DELETE("/:id/menu/:itemId",
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleStallAdmin),
				controllers.RemoveMenuItem)
		}

		public := api.Group("/public")
		{
			public.GET("/stalls", controllers.GetPublicStalls)
			public.GET("/stalls/:id/menu", controllers.GetStallMenu)
		}

		orders := api.Group("/orders")
		{
			orders.POST("/nfc", staffAuth,
				middleware.RequireRoles(models.RoleStallAdmin, models.RoleStallCashier),
				controllers.CreateNFCOrder)
			orders.POST("/online", customerAuth, controllers.CreateOnlineOrder)
			orders.GET("/stall/:stallId", staffAuth, controllers.GetOrdersByStall)
			orders.GET("/:id", staffAuth, controllers.GetOrder)
			orders.PATCH("/:id/status", staffAuth,
				middleware.RequireRoles(models.RoleMasterAdmin, models.RoleStallAdmin, models.RoleStallCashier),
				controllers.UpdateOrderStatus)
		}

		// Gateway server-to-server callbacks; no bearer auth, the success
		// path re-validates against the gateway itself
		payment := api.Group("/payment")
		{
			payment.POST("/success", controllers.PaymentSuccess)
			payment.POST("/fail", controllers.PaymentFail)
			payment.POST("/cancel", controllers.PaymentCancel)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "NFC venue manager API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
