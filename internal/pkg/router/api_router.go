package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/HoshinoLab/CreatorBase/app/controllers"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1")

	// auth
	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Get("/me", middleware.RequireAuth, controllers.HandleMe)

	// plan catalog is public so the pricing page needs no login
	v1.Get("/subscriptions/plans", controllers.HandlePlans)

	// subscriptions
	subs := v1.Group("/subscriptions", middleware.RequireAuth)
	subs.Post("/checkout", controllers.HandleSubscriptionCheckout)
	subs.Get("/", controllers.HandleSubscriptionList)
	subs.Post("/:id/cancel", controllers.HandleSubscriptionCancel)

	// points
	pts := v1.Group("/points", middleware.RequireAuth)
	pts.Get("/balance", controllers.HandlePointBalance)
	pts.Get("/transactions", controllers.HandlePointTransactions)
	pts.Post("/purchase", controllers.HandlePointPurchase)
	pts.Post("/spend", controllers.HandlePointSpend)

	// one-time orders and note purchases
	v1.Post("/orders/checkout", middleware.RequireAuth, controllers.HandleOrderCheckout)
	v1.Post("/notes/:id/purchase", middleware.RequireAuth, controllers.HandleNotePurchase)

	// server-to-server operations
	internal := v1.Group("/internal", middleware.InternalAPIKeyMiddleware())
	internal.Post("/points/grant", controllers.HandleAdminPointGrant)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
