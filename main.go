package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"progress-service/internal/cache"
	"progress-service/internal/config"
	"progress-service/internal/db"
	"progress-service/internal/event"
	"progress-service/internal/handlers"
	"progress-service/internal/repository"
	"progress-service/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg := config.Load()

	db.InitMongo(cfg.MongoDB)
	database := db.Client.Database(cfg.MongoDB.Database)

	// Statistics cache is optional; a nil cache disables it.
	statsCache := cache.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer statsCache.Close()

	// So is the event publisher.
	var publisher *event.EventPublisher
	if cfg.RabbitMQ.URI != "" && cfg.RabbitMQ.Exchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
	} else {
		log.Println("RabbitMQ not configured, progress events will not be published")
	}
	defer publisher.Close()

	recordRepo := repository.NewRecordRepository(database)
	aggregateRepo := repository.NewAggregateRepository(database)
	questionRepo := repository.NewQuestionRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	transactor := repository.NewMongoTransactor(db.Client)

	progressService := service.NewProgressService(recordRepo, aggregateRepo, questionRepo, transactor, statsCache)
	statsService := service.NewStatsService(aggregateRepo, recordRepo, statsCache)
	sessionService := service.NewSessionService(progressService, sessionRepo)
	questionService := service.NewQuestionService(questionRepo)

	answerHandler := handlers.NewAnswerHandler(progressService)
	statsHandler := handlers.NewStatsHandler(statsService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	adminHandler := handlers.NewAdminHandler(progressService, cfg.Study.RetentionDays)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes - statistics and catalog reads
	publicStats := r.Group("/public/progress/statistics")
	{
		publicStats.GET("/", statsHandler.GetStatistics)
		publicStats.GET("/weak-areas", statsHandler.GetWeakAreas)
		publicStats.GET("/over-time", statsHandler.GetProgressOverTime)
		publicStats.GET("/recommendations", statsHandler.GetRecommendations)
		publicStats.GET("/overview", statsHandler.GetOverview)
	}

	publicQuestion := r.Group("/public/progress/question")
	{
		publicQuestion.GET("/", questionHandler.ListQuestions)
		publicQuestion.GET("/:id", questionHandler.GetQuestion)
	}

	// Protected routes - writes require an authenticated caller
	protected := r.Group("/protected/progress")
	protected.Use(requireUser())
	{
		protected.POST("/answer", func(c *gin.Context) {
			answerHandler.RecordAnswer(c)
			if c.Writer.Status() == http.StatusCreated {
				publisher.Publish(event.AnswerRecorded, gin.H{
					"user_id":   c.GetHeader("X-User-ID"),
					"timestamp": time.Now(),
				})
			}
		})
		protected.POST("/answer/bulk", func(c *gin.Context) {
			answerHandler.BulkRecordAnswers(c)
			if c.Writer.Status() == http.StatusCreated {
				publisher.Publish(event.AnswersBulkRecorded, gin.H{
					"user_id":   c.GetHeader("X-User-ID"),
					"timestamp": time.Now(),
				})
			}
		})
		protected.GET("/activity", answerHandler.RecentActivity)

		protected.POST("/session", func(c *gin.Context) {
			sessionHandler.StartSession(c)
			if c.Writer.Status() == http.StatusCreated {
				publisher.Publish(event.SessionStarted, gin.H{
					"user_id":   c.GetHeader("X-User-ID"),
					"timestamp": time.Now(),
				})
			}
		})
		protected.POST("/session/answer", sessionHandler.SubmitAnswer)
		protected.POST("/session/end", func(c *gin.Context) {
			sessionHandler.EndSession(c)
			if c.Writer.Status() == http.StatusOK {
				publisher.Publish(event.SessionCompleted, gin.H{
					"user_id":   c.GetHeader("X-User-ID"),
					"timestamp": time.Now(),
				})
			}
		})
		protected.GET("/session/status", sessionHandler.GetStatus)
		protected.GET("/session/history", sessionHandler.GetHistory)

		protected.POST("/question", questionHandler.CreateQuestion)

		protected.POST("/admin/cleanup", func(c *gin.Context) {
			adminHandler.CleanupRecords(c)
			if c.Writer.Status() == http.StatusOK {
				publisher.Publish(event.RecordsCleaned, gin.H{
					"user_id":   c.GetHeader("X-User-ID"),
					"timestamp": time.Now(),
				})
			}
		})
	}

	log.Printf("Progress service listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// requireUser rejects protected calls that carry no X-User-ID header.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
