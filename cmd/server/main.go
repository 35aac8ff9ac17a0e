package main

import (
	"log"

	"planning-poker-backend/internal/config"
	"planning-poker-backend/internal/database"
	"planning-poker-backend/internal/handlers"
	"planning-poker-backend/internal/middleware"
	"planning-poker-backend/internal/services"
	"planning-poker-backend/internal/ws"

	_ "planning-poker-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Planning Poker API
// @version         1.0
// @description     API for collaborative story estimation sessions
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	tallyService := services.NewTallyService()
	sessionService := services.NewSessionService(db)
	storyService := services.NewStoryService(db, sessionService)
	voteService := services.NewVoteService(db, tallyService, sessionService)
	suggestService := services.NewSuggestService(cfg.SuggestAPIKey, cfg.SuggestAPIURL, cfg.SuggestModel)

	authHandler := handlers.NewAuthHandler(authService)
	settingsHandler := handlers.NewSettingsHandler(db)
	sessionHandler := handlers.NewSessionHandler(sessionService, hub)
	storyHandler := handlers.NewStoryHandler(storyService, hub)
	voteHandler := handlers.NewVoteHandler(voteService, storyService, hub)
	playHandler := handlers.NewPlayHandler(sessionService, voteService, hub)
	suggestHandler := handlers.NewSuggestHandler(storyService, voteService, suggestService)
	exportHandler := handlers.NewExportHandler(sessionService, storyService)
	wsHandler := handlers.NewWSHandler(hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Participant-Token"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/session/:id", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		settings := api.Group("/settings")
		settings.Use(middleware.JWTAuth(authService))
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PUT("", settingsHandler.UpdateSettings)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", middleware.JWTAuth(authService), sessionHandler.ListSessions)
			sessions.POST("", middleware.JWTAuth(authService), sessionHandler.CreateSession)
			sessions.POST("/join", middleware.JWTAuth(authService), sessionHandler.JoinSession)
			sessions.GET("/suggest-status", middleware.JWTAuth(authService), suggestHandler.CheckAvailable)

			sessions.GET("/:id", middleware.FlexAuth(authService, sessionService), sessionHandler.GetSession)
			sessions.PUT("/:id", middleware.JWTAuth(authService), sessionHandler.UpdateSession)
			sessions.DELETE("/:id", middleware.JWTAuth(authService), sessionHandler.DeleteSession)
			sessions.POST("/:id/start", middleware.JWTAuth(authService), sessionHandler.StartSession)
			sessions.POST("/:id/complete", middleware.JWTAuth(authService), sessionHandler.CompleteSession)
			sessions.POST("/:id/cancel", middleware.JWTAuth(authService), sessionHandler.CancelSession)
			sessions.GET("/:id/participants", middleware.FlexAuth(authService, sessionService), sessionHandler.ListParticipants)
			sessions.GET("/:id/export", middleware.JWTAuth(authService), exportHandler.ExportSession)

			sessions.GET("/:id/stories", middleware.FlexAuth(authService, sessionService), storyHandler.ListStories)
			sessions.POST("/:id/stories", middleware.JWTAuth(authService), storyHandler.AddStory)
			sessions.POST("/:id/stories/import", middleware.JWTAuth(authService), storyHandler.ImportStories)
			sessions.PUT("/:id/reorder", middleware.JWTAuth(authService), storyHandler.ReorderStories)
		}

		stories := api.Group("/stories")
		{
			stories.PUT("/:id", middleware.JWTAuth(authService), storyHandler.UpdateStory)
			stories.DELETE("/:id", middleware.JWTAuth(authService), storyHandler.DeleteStory)
			stories.POST("/:id/start", middleware.JWTAuth(authService), storyHandler.StartVoting)
			stories.POST("/:id/complete", middleware.JWTAuth(authService), storyHandler.CompleteVoting)
			stories.POST("/:id/skip", middleware.JWTAuth(authService), storyHandler.SkipStory)
			stories.POST("/:id/reset", middleware.JWTAuth(authService), storyHandler.ResetStory)
			stories.POST("/:id/suggest", middleware.JWTAuth(authService), suggestHandler.SuggestEstimate)

			stories.POST("/:id/votes", middleware.JWTAuth(authService), voteHandler.CastVote)
			stories.GET("/:id/votes", middleware.FlexAuth(authService, sessionService), voteHandler.GetStoryVotes)
			stories.GET("/:id/stats", middleware.FlexAuth(authService, sessionService), voteHandler.GetVoteStats)
			stories.DELETE("/:id/votes", middleware.JWTAuth(authService), voteHandler.ClearStoryVotes)
		}

		play := api.Group("/play")
		{
			play.POST("/join", playHandler.Join)
			play.POST("/vote", playHandler.Vote)
			play.GET("/state", playHandler.GetState)
			play.POST("/leave", playHandler.Leave)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
