package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain" // Needed for RoleMiddleware
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// Services are the dependencies of the HTTP surface.
type Services struct {
	Auth    service.AuthService
	Profile service.ProfileService
	Plans   service.PlanService
	Chat    service.ChatService
	Audio   service.AudioService
}

func SetupRoutes(router *gin.Engine, services Services, log *logger.Logger) error {
	if err := RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	authHandler := NewAuthHandler(services.Auth, log)
	profileHandler := NewProfileHandler(services.Profile, log)
	planHandler := NewPlanHandler(services.Plans, log)
	chatHandler := NewChatHandler(services.Chat, log)
	audioHandler := NewAudioHandler(services.Audio, log)

	authMiddleware := AuthMiddleware(services.Auth)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// Walk-in onboarding chats are allowed without a token.
		apiV1.POST("/chat", OptionalAuthMiddleware(services.Auth), chatHandler.Chat)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware, RoleMiddleware(domain.RoleUser, domain.RoleAdmin))
	{
		protected.GET("/me", authHandler.Me)

		// --- Profile Routes ---
		userGroup := protected.Group("/user")
		{
			userGroup.POST("/details", profileHandler.CreateUserDetails)
			userGroup.GET("/details", profileHandler.GetUserDetails)
			userGroup.PATCH("/details", profileHandler.UpdateUserDetailsField)
			userGroup.POST("/memories", profileHandler.AddMemory)
			userGroup.DELETE("/memories/:index", profileHandler.RemoveMemory)
			// DELETE /api/v1/user/{userId} - self, or any user for admins
			userGroup.DELETE("/:userId", profileHandler.DeleteUserProfile)
		}

		// --- Plan Routes ---
		planGroup := protected.Group("/plans")
		{
			planGroup.GET("/generate", planHandler.GenerateWeeklyPlan)
			planGroup.GET("/week", planHandler.GetWeeklyPlan)
			planGroup.GET("/:weekId/day", planHandler.GetDailyWorkout)
			planGroup.PUT("/:weekId/status", planHandler.UpdateExerciseStatus)
			planGroup.POST("/journal-summary", planHandler.SummarizeJournal)
			planGroup.POST("/log", planHandler.LogWorkout)
			planGroup.POST("/quick", planHandler.QuickWorkout)
			planGroup.POST("/regenerate", planHandler.RegenerateWorkout)
		}

		// --- Chat History Routes ---
		protected.GET("/chat", chatHandler.ListChatSessions)
		protected.GET("/chat/:chatId", chatHandler.GetChatHistory)

		protected.POST("/audio/transcribe", audioHandler.Transcribe)
	}

	// --- Admin Routes ---
	adminGroup := apiV1.Group("/admin")
	adminGroup.Use(authMiddleware, RoleMiddleware(domain.RoleAdmin))
	{
		adminGroup.POST("/reconcile/:userId", planHandler.ReconcileWeekIndex)
	}
	return nil
}
