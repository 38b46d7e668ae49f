package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/cache"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/database"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/env"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/plans"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "8080")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// the plan catalog is immutable; a deployment without configured gateway
	// plan ids must not come up
	if err := plans.Setup(); err != nil {
		log.Fatal(err)
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "CreatorBase",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
