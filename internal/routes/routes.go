package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sipitali-server/internal/authz"
	"sipitali-server/internal/config"
	"sipitali-server/internal/handlers"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/middleware"
	"sipitali-server/internal/ratelimit"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/services"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Config  *config.Config
	Stores  repository.Stores
	Log     *logger.Logger
	Metrics *metrics.Metrics
	// Limiter throttles register and login.
	Limiter ratelimit.Limiter
	// Redis is optional and only reported by the readiness probe.
	Redis *redis.Client
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	appointmentService := services.NewAppointmentService(deps.Stores, deps.Metrics, deps.Log)
	authService := services.NewAuthService(deps.Stores, cfg, deps.Metrics, deps.Log)
	userService := services.NewUserService(deps.Stores, deps.Log)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	healthHandler := handlers.NewHealthHandler(deps.Stores.Health, deps.Redis, deps.Log)

	router.Use(middleware.RequestID(), middleware.RequestLogger(deps.Log), middleware.Metrics(deps.Metrics))

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := router.Group("/api")
	api.GET("/health", healthHandler.Live)
	api.GET("/health/ready", healthHandler.Ready)

	// Public routes (no authentication required)
	limited := middleware.RateLimit(deps.Limiter, deps.Log)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", limited, authHandler.Register)
		authRoutes.POST("/login", limited, authHandler.Login)
		authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated routes
	private := api.Group("")
	private.Use(middleware.AuthMiddleware(cfg, deps.Stores.Users))
	{
		private.GET("/auth/me", middleware.RequireOperation(authz.ViewSelf), authHandler.GetMe)

		// Static segments are registered before /:id.
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RequireOperation(authz.CreateAppointment), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", middleware.RequireOperation(authz.ListAppointments), appointmentHandler.GetAllAppointments)
			appointmentRoutes.GET("/my-appointments", middleware.RequireOperation(authz.ListOwnAppointments), appointmentHandler.GetMyAppointments)
			appointmentRoutes.GET("/pending", middleware.RequireOperation(authz.ListPending), appointmentHandler.GetPendingAppointments)
			appointmentRoutes.GET("/doctor/schedule", middleware.RequireOperation(authz.ViewDoctorSchedule), appointmentHandler.GetDoctorSchedule)
			appointmentRoutes.GET("/stats", middleware.RequireOperation(authz.ViewAppointmentStats), appointmentHandler.GetAppointmentStats)
			appointmentRoutes.GET("/:id", middleware.RequireOperation(authz.ViewAppointment), appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id/confirm", middleware.RequireOperation(authz.ConfirmAppointment), appointmentHandler.ConfirmAppointment)
			appointmentRoutes.PUT("/:id/cancel", middleware.RequireOperation(authz.CancelAppointment), appointmentHandler.CancelAppointment)
			appointmentRoutes.PUT("/:id", middleware.RequireOperation(authz.UpdateAppointment), appointmentHandler.UpdateAppointment)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/doctors", middleware.RequireOperation(authz.ListDoctors), userHandler.GetDoctors)
			userRoutes.GET("", middleware.RequireOperation(authz.ListUsers), userHandler.GetUsers)
			userRoutes.POST("", middleware.RequireOperation(authz.CreateUser), userHandler.CreateUser)
			userRoutes.GET("/:id", middleware.RequireOperation(authz.ViewUser), userHandler.GetUserByID)
			userRoutes.PUT("/:id", middleware.RequireOperation(authz.UpdateUser), userHandler.UpdateUser)
			userRoutes.PUT("/:id/doctor-profile", middleware.RequireOperation(authz.ManageDoctorProfile), userHandler.UpsertDoctorProfile)
			userRoutes.DELETE("/:id", middleware.RequireOperation(authz.DeleteUser), userHandler.DeleteUser)
		}
	}
}
