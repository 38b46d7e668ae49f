package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/payment"
)

const webhookTimeout = 25 * time.Second

// HandleOneLatWebhook receives gateway notifications for payment orders and
// recurring payments.
//
// Response policy: 200 acknowledges (processed, duplicate, or deliberately
// ignored); 5xx asks the gateway to redeliver. Unresolvable events are
// acknowledged with status "error" because redelivering them cannot help
// until the missing local data appears through some other path.
func HandleOneLatWebhook(c *fiber.Ctx) error {
	var n payment.WebhookNotification
	if err := c.BodyParser(&n); err != nil {
		return badRequest(c, "invalid webhook payload")
	}
	if n.ID == "" || n.EntityID == "" {
		return badRequest(c, "webhook payload missing id or entity_id")
	}

	rawBody := string(c.BodyRaw())
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	switch n.EntityType {
	case payment.EntityRecurrentPayment:
		return handleRecurrentEvent(ctx, c, n, rawBody)
	case payment.EntityPaymentOrder:
		return handleOrderEvent(ctx, c, n)
	default:
		log.Infof("webhook %s: ignoring entity type %q", n.ID, n.EntityType)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "status": "ignored"})
	}
}

func handleRecurrentEvent(ctx context.Context, c *fiber.Ctx, n payment.WebhookNotification, rawBody string) error {
	res, err := getRecurringReconciler().Process(ctx, n, rawBody)
	if err != nil {
		if errors.Is(err, payment.ErrUnresolvableReference) {
			log.Errorf("webhook %s: unresolvable recurrent payment %s", n.ID, n.EntityID)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": false, "status": "error"})
		}
		log.Errorf("webhook %s: recurrent payment %s failed: %v", n.ID, n.EntityID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}
	if res.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "status": "success", "duplicate": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":                  true,
		"status":              "success",
		"subscription_status": res.Status,
		"points_granted":      res.PointsGranted,
	})
}

func handleOrderEvent(ctx context.Context, c *fiber.Ctx, n payment.WebhookNotification) error {
	res, err := getOrderReconciler().Process(ctx, n)
	if err != nil {
		log.Errorf("webhook %s: payment order %s failed: %v", n.ID, n.EntityID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}
	if res == nil {
		// not one of our orders
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "status": "ignored"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":           true,
		"status":       "success",
		"order_status": res.Status,
		"fulfilled":    res.Fulfilled,
	})
}
