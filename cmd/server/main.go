package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/api/handlers"
	"github.com/maheshrc27/campaign-publisher/internal/api/middleware"
	"github.com/maheshrc27/campaign-publisher/internal/app"
	"github.com/maheshrc27/campaign-publisher/internal/queue"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	slog.SetDefault(app.NewLogger(cfg))

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to start publisher: %v", err)
	}
	defer a.Close()

	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    512 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("unhandled request error", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(requestid.New())
	fiberApp.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	fiberApp.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		if err := a.DB.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := fiberApp.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(a.Posts)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/due", post.DuePosts)
	api.Get("/posts/posted", post.PostedIDs)
	api.Get("/posts/:id", post.GetPost)
	api.Put("/posts/:id", post.EditPost)
	api.Delete("/posts/:id", post.RemovePost)
	api.Get("/posts/:id/history", post.PostHistory)
	api.Post("/posts/:id/schedule", post.SchedulePost)
	api.Post("/posts/:id/unschedule", post.UnschedulePost)
	api.Post("/posts/:id/reschedule", post.ReschedulePost)
	api.Get("/stats", post.Stats)

	campaign := handlers.NewCampaignHandler(a.Campaigns)
	api.Post("/campaigns", campaign.CreateCampaign)
	api.Get("/campaigns", campaign.ListCampaigns)
	api.Get("/campaigns/:id/posts", campaign.CampaignPosts)
	api.Post("/campaigns/:id/posts/:postID", campaign.AddPost)
	api.Post("/campaigns/:id/import", post.ImportCampaign)

	media := handlers.NewMediaHandler(a.Media)
	api.Post("/media", media.UploadMedia)

	tick := handlers.NewTickHandler(a.Job, a.Queue)
	api.Post("/ticks", tick.TriggerTick)

	if cfg.SchedulerEnabled {
		if err := a.Job.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	var worker *asynq.Server
	if a.Queue != nil {
		worker = asynq.NewServer(a.RedisOpt(), asynq.Config{
			Concurrency: 1,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishTick, queue.NewQueue(a.Job).HandleTickTask)

		go func() {
			slog.Info("starting the asynq server")
			if err := worker.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	go func() {
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	gracefulShutdown(fiberApp, a, worker)
}

func gracefulShutdown(fiberApp *fiber.App, a *app.App, worker *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := fiberApp.Shutdown(); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}

	if worker != nil {
		worker.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.StopTimeout)
	defer cancel()
	if err := a.Job.Stop(ctx); err != nil {
		slog.Warn("scheduler did not stop cleanly", "error", err)
	}

	slog.Info("server shutdown complete")
}
