package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/smartsheet"
	"backend/internal/websocket"
	"context"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// @title           Institutional Performance Dashboard API
// @version         1.0
// @description     Backend for institution performance tracking with role-based access control.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		logrus.Info("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	logrus.Info("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	initiativeRepo := repository.NewInitiativeRepository(db)

	auditService := service.NewAuditService(db)
	rbacService := service.NewRBACService(userRepo, assignmentRepo, roleRepo, institutionRepo, txManager, auditService)
	roleService := service.NewRoleService(roleRepo, txManager, auditService)
	userService := service.NewUserService(userRepo, tokenRepo, auditService, middleware.GetJWTSecret())
	institutionService := service.NewInstitutionService(institutionRepo, auditService)
	initiativeService := service.NewInitiativeService(initiativeRepo, txManager)
	exportService := service.NewExportService(performanceRepo, auditService)

	var smartsheetClient *smartsheet.Client
	if token := os.Getenv("SMARTSHEET_TOKEN"); token != "" {
		smartsheetClient = smartsheet.NewClient(token, os.Getenv("SMARTSHEET_BASE_URL"))
	}
	sheetID := os.Getenv("SMARTSHEET_SHEET_ID")
	smartsheetService := service.NewSmartsheetService(
		smartsheetClient, sheetID,
		institutionRepo, performanceRepo, txManager, auditService,
	)

	// Submissions mirror to the sheet only when the integration is configured
	var sheetMirror service.SmartsheetService
	if smartsheetClient != nil && sheetID != "" {
		sheetMirror = smartsheetService
	}
	performanceService := service.NewPerformanceService(performanceRepo, institutionRepo, wsHub, sheetMirror, auditService)

	// Seed the permission catalog so role management has codes to bind
	if err := roleService.SeedDefaultPermissions(context.Background()); err != nil {
		logrus.WithError(err).Warn("permission seeding failed")
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, rbacService)
	roleHandler := handler.NewRoleHandler(roleService, rbacService)
	rbacHandler := handler.NewRBACHandler(rbacService)
	institutionHandler := handler.NewInstitutionHandler(institutionService, rbacService)
	performanceHandler := handler.NewPerformanceHandler(performanceService, rbacService)
	initiativeHandler := handler.NewInitiativeHandler(initiativeService, rbacService)
	exportHandler := handler.NewExportHandler(exportService, userService, rbacService)
	smartsheetHandler := handler.NewSmartsheetHandler(smartsheetService, rbacService)
	auditHandler := handler.NewAuditHandler(auditService, rbacService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	roleHandler.RegisterRoutes(api)
	rbacHandler.RegisterRoutes(api)
	institutionHandler.RegisterRoutes(api)
	performanceHandler.RegisterRoutes(api)
	initiativeHandler.RegisterRoutes(api)
	exportHandler.RegisterRoutes(api)
	smartsheetHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	port := envOr("PORT", "8080")
	logrus.WithField("port", port).Info("server listening")
	if err := router.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
