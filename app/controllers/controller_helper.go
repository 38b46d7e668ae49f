package controllers

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/database"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/payment"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/plans"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/points"
)

var (
	wireOnce            sync.Once
	paymentService      *payment.Service
	pointsService       *points.Service
	orderReconciler     *payment.OrderReconciler
	recurringReconciler *payment.RecurringReconciler

	validate = validator.New()
)

// wire builds the shared service graph lazily on the first request, after
// SetupDatabase and plans.Setup have run in main.
func wire() {
	wireOnce.Do(func() {
		repo := payment.NewGormRepository(database.GetDB())
		gateway := payment.NewOneLatClientFromEnv()
		catalog := plans.Default()

		paymentService = payment.NewService(repo, gateway, catalog, payment.ConfigFromEnv())
		pointsService = points.NewService(repo)
		orderReconciler = payment.NewOrderReconciler(repo, gateway, payment.NewStoreFulfiller())
		recurringReconciler = payment.NewRecurringReconciler(repo, gateway, catalog)
	})
}

func getPaymentService() *payment.Service {
	wire()
	return paymentService
}

func getPointsService() *points.Service {
	wire()
	return pointsService
}

func getOrderReconciler() *payment.OrderReconciler {
	wire()
	return orderReconciler
}

func getRecurringReconciler() *payment.RecurringReconciler {
	wire()
	return recurringReconciler
}

// parseBody binds and validates a JSON request body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "bad_request",
		"message": message,
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "not_found",
		"message": message,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal_server_error",
	})
}
