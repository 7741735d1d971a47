package routes

import (
	"time"

	"educonnect/config"
	"educonnect/handlers"
	"educonnect/middleware"
	"educonnect/models"
	"educonnect/services/navigation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers the login, registration and session endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/login", hb.LoginHandler)
		api.POST("/register", hb.RegisterHandler)
		api.POST("/provider", hb.ProviderLoginHandler)

		// Sessions still in profile completion may use these.
		pending := api.Group("")
		pending.Use(middleware.SessionAuthMiddleware(hb.Sessions, true))
		pending.POST("/complete-profile", hb.CompleteProfileHandler)
		pending.DELETE("/complete-profile", hb.CancelProfileCompletionHandler)
		pending.POST("/logout", hb.LogoutHandler)
		pending.GET("/token", hb.TokenHandler)
	}
}

// RegisterProfileRoutes registers endpoints for the signed-in user's profile.
func RegisterProfileRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/profile")
	{
		api.Use(middleware.SessionAuthMiddleware(hb.Sessions, false))
		api.GET("/me", hb.GetMyProfileHandler)
	}
}

// RegisterFormRoutes registers the form descriptor endpoint.
func RegisterFormRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/forms/:form", hb.GetFormHandler)
}

// RegisterDashboardRoutes registers the role-gated landing dashboards.
func RegisterDashboardRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	dash := r.Group("/dashboard")
	{
		dash.Use(middleware.SessionAuthMiddleware(hb.Sessions, false))
		dash.GET("/teacher", middleware.RequireDashboard(navigation.TeacherDashboard), handlers.DashboardHandler(models.RoleTeacher))
		dash.GET("/student", middleware.RequireDashboard(navigation.StudentDashboard), handlers.DashboardHandler(models.RoleStudent))
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	origins := config.AllowedOrigins()
	allowAll := len(origins) == 1 && origins[0] == "*"
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	// Credentials cannot be combined with a wildcard origin.
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	RegisterAuthRoutes(r, hb)
	RegisterProfileRoutes(r, hb)
	RegisterFormRoutes(r, hb)
	RegisterDashboardRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
