package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HoshinoLab/CreatorBase/app/controllers"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/constants"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/middleware"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// liveness probe
	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// gateway webhooks are unauthenticated by design; the reconcilers verify
	// every event against the gateway before acting on it
	app.Post(constants.WebhookOneLatRoute, controllers.HandleOneLatWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
