package main

import (
	"academy/config"
	adminControllers "academy/controllers/admin"
	authControllers "academy/controllers/auth"
	checkoutControllers "academy/controllers/checkout"
	courseControllers "academy/controllers/course"
	webhookControllers "academy/controllers/webhook"
	"academy/database"
	"academy/middleware"
	adminRoutes "academy/routers/adminRoutes"
	authRoutes "academy/routers/authRoutes"
	checkoutRoutes "academy/routers/checkoutRoutes"
	courseRoutes "academy/routers/courseRoutes"
	"academy/services/enrollment"
	"academy/services/gateway"
	"academy/services/intake"
	"academy/utils"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.LoadConfig()

	dbInstance, err := database.ConnectDb(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	db := dbInstance.Db

	paymentGateway := gateway.New(cfg.PaymentApiURL, cfg.PaymentSecretKey)
	purchaseIntake := intake.New(cfg.PaymentWebhookSecret, cfg.WebhookTolerance, paymentGateway)
	mailer := utils.NewEmailService(cfg.SendGridApiKey, cfg.EmailSender, cfg.EmailSenderName)
	enrollments := enrollment.NewService(db, enrollment.Options{
		CommitRetryAttempts: cfg.CommitRetryAttempts,
		SeedRetryAttempts:   cfg.SeedRetryAttempts,
		Mailer:              mailer,
	})

	app := fiber.New()

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	jwt := middleware.JWTMiddleware(cfg.JWTKey)

	authRoutes.SetupAuthRoutes(app, authControllers.New(db, cfg.JWTKey, cfg.SaltRound))
	checkoutRoutes.SetupCheckoutRoutes(app,
		checkoutControllers.New(db, paymentGateway, purchaseIntake, enrollments, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL),
		webhookControllers.New(purchaseIntake, enrollments),
		jwt)
	courseRoutes.SetupCourseRoutes(app, courseControllers.New(db, enrollments), jwt)
	adminRoutes.SetupAdminRoutes(app, db, adminControllers.New(db, enrollments), jwt)

	if _, err := utils.InitializeProgressScheduler(enrollments, cfg.ProgressSweepSchedule, cfg.PendingPaymentTTL); err != nil {
		log.Fatalf("Invalid PROGRESS_SWEEP_SCHEDULE %q: %v", cfg.ProgressSweepSchedule, err)
	}

	log.Printf("Server is running on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
