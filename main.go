package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/cmd"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/container"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/database"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/logger"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/middleware"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/routes"
)

func init() {
	// Load .env file, but don't overwrite system environment variables.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(context.Background())
}

func main() {
	appLogger := logger.NewLogger()
	defer appLogger.Sync()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer db.Close()

	log.Println("Connected to the database successfully!")

	app, err := container.NewAppContainer(db, appLogger)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Scheduler.Run(ctx)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware())

	routes.RegisterUtilityRoutes(router)
	routes.RegisterPublicRoutes(router, app)
	routes.RegisterProtectedRoutes(router, app)

	host := os.Getenv("APP_HOST")
	if host == "" {
		host = ":8080"
	}

	if err := router.Run(host); err != nil {
		panic(err)
	}
}
