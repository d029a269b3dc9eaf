package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/alvarofc/supachat/config"
	"github.com/alvarofc/supachat/controller"
	"github.com/alvarofc/supachat/dao"
	"github.com/alvarofc/supachat/logic"
	"github.com/alvarofc/supachat/middleware"
	"github.com/alvarofc/supachat/models"
	"github.com/alvarofc/supachat/pkg"
	"github.com/alvarofc/supachat/quota"
)

func main() {
	// Initialize config
	if len(os.Args) < 2 {
		log.Fatal("Usage: supachat <config.yaml>")
	}
	configFile := os.Args[1]
	if err := config.LoadConfig(configFile); err != nil {
		log.Fatalf("Failed to load config from %s: %v", configFile, err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database
	db, err := gorm.Open(postgres.Open(config.GlobalConfig.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Conversation{}, &models.Profile{}, &models.QuotaEntry{}); err != nil {
		logger.Fatal("failed to migrate database schema", zap.Error(err))
	}

	// Initialize upstream clients
	chatClient := pkg.NewChatClient(config.GlobalConfig.Chat.BaseURL, config.GlobalConfig.Chat.APIKey, logger)
	turnstile := pkg.NewTurnstileVerifier(config.GlobalConfig.Turnstile.SecretKey)

	// Initialize DAOs
	convoDAO := dao.NewConversationDAO(db)
	profileDAO := dao.NewProfileDAO(db)
	quotaStore := dao.NewQuotaStoreDAO(db)

	// Initialize quota tracker and logics
	tracker := quota.NewTracker(
		quotaStore,
		profileDAO,
		config.GlobalConfig.Limits.AnonymousDaily,
		config.GlobalConfig.Limits.RegisteredDaily,
	)
	convoLogic := logic.NewConversationLogic(convoDAO)
	profileLogic := logic.NewProfileLogic(profileDAO)
	sessionLogic := logic.NewSessionLogic(
		convoDAO,
		tracker,
		chatClient,
		config.GlobalConfig.Chat.Model,
		config.GlobalConfig.Chat.MaxTokens,
		logger,
	)

	// Initialize Controllers
	chatCtrl := controller.NewChatController(sessionLogic, turnstile)
	convoCtrl := controller.NewConversationController(convoLogic)
	profileCtrl := controller.NewProfileController(profileLogic, tracker)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Cors())

	auth := middleware.OptionalAuth(config.GlobalConfig.Auth.JWTSecret)

	r.POST("/chat", auth, chatCtrl.Chat)
	r.POST("/conversations", auth, convoCtrl.CreateConversation)
	r.GET("/conversations", auth, convoCtrl.GetConversations)
	r.GET("/conversations/:id/messages", auth, convoCtrl.GetMessages)
	r.PUT("/conversations/:id/messages", auth, convoCtrl.SaveMessages)
	r.GET("/profile", auth, middleware.RequireAuth(), profileCtrl.GetProfile)
	r.GET("/quota", auth, profileCtrl.GetRemaining)
	r.GET("/prompts", controller.GetPrompts)

	addr := fmt.Sprintf(":%d", config.GlobalConfig.Server.Port)
	logger.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
