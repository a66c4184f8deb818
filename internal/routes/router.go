package routes

import (
	"taskflow/internal/auth"
	"taskflow/internal/controller"
	"taskflow/internal/middleware"
	"taskflow/internal/realtime"

	"github.com/gin-gonic/gin"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Auth          *controller.AuthController
	Tasks         *controller.TaskController
	Notifications *controller.NotificationController
	Users         *controller.UserController
	Dispatcher    *realtime.Dispatcher
	Resolver      *auth.Resolver
}

// Router builds the gin engine with all routes attached.
func Router(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS())

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/ready", controller.Ready)

	// Real-time channel (authenticates during handshake)
	router.GET("/ws", deps.Dispatcher.HandleWS)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", deps.Auth.Register)
		authGroup.POST("/login", deps.Auth.Login)
		authGroup.POST("/logout", deps.Auth.Logout)
		authGroup.GET("/verify-email", deps.Auth.VerifyEmail)
		authGroup.POST("/resend-verification", deps.Auth.ResendVerification)
	}

	authRequired := middleware.Auth(deps.Resolver)
	authGroup.GET("/me", authRequired, deps.Auth.Me)
	authGroup.PUT("/profile", authRequired, deps.Auth.UpdateProfile)

	tasks := api.Group("/tasks", authRequired)
	{
		tasks.POST("", deps.Tasks.Create)
		tasks.GET("", deps.Tasks.List)
		tasks.GET("/dashboard", deps.Tasks.Dashboard)
		tasks.GET("/:id", deps.Tasks.GetByID)
		tasks.GET("/:id/audit", deps.Tasks.Audit)
		tasks.PUT("/:id", deps.Tasks.Update)
		tasks.DELETE("/:id", deps.Tasks.Delete)
	}

	notifications := api.Group("/notifications", authRequired)
	{
		notifications.GET("", deps.Notifications.List)
		notifications.PUT("/read-all", deps.Notifications.MarkAllRead)
		notifications.PUT("/:id/read", deps.Notifications.MarkRead)
	}

	api.GET("/users", authRequired, deps.Users.List)

	return router
}
