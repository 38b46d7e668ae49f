package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/payment"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PlanKey        string            `json:"plan_key" validate:"required"`
	SalonID        uint              `json:"salon_id"`
	SellerID       string            `json:"seller_id" validate:"max=64"`
	SellerUsername string            `json:"seller_username" validate:"max=150"`
	SuccessPath    string            `json:"success_path" validate:"max=500"`
	ErrorPath      string            `json:"error_path" validate:"max=500"`
	Metadata       map[string]string `json:"metadata"`
}

// HandleSubscriptionCheckout creates a hosted checkout for a point plan,
// optionally bound to a salon.
func HandleSubscriptionCheckout(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req checkoutRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := getPaymentService().CreateCheckout(c.Context(), payment.CreateCheckoutInput{
		UserID:         userID,
		PlanKey:        req.PlanKey,
		SalonID:        req.SalonID,
		SellerID:       req.SellerID,
		SellerUsername: req.SellerUsername,
		SuccessPath:    req.SuccessPath,
		ErrorPath:      req.ErrorPath,
		Metadata:       req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPlanNotFound):
			return badRequest(c, "unknown plan")
		case errors.Is(err, payment.ErrPlanMismatch):
			return badRequest(c, "plan does not match the salon")
		case errors.Is(err, payment.ErrNotFound):
			return notFound(c, "salon not found")
		default:
			log.Errorf("checkout for user %d failed: %v", userID, err)
			return internalError(c)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleSubscriptionList returns the caller's subscriptions.
func HandleSubscriptionList(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	views, err := getPaymentService().ListSubscriptions(userID)
	if err != nil {
		log.Errorf("listing subscriptions for user %d failed: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"subscriptions": views})
}

// HandleSubscriptionCancel stops a subscription at the gateway.
func HandleSubscriptionCancel(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	subscriptionID, err := c.ParamsInt("id")
	if err != nil || subscriptionID <= 0 {
		return badRequest(c, "invalid subscription id")
	}

	sub, err := getPaymentService().Cancel(c.Context(), userID, uint(subscriptionID))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotFound):
			return notFound(c, "subscription not found")
		case errors.Is(err, payment.ErrNotCancelable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "not_cancelable",
				"message": "subscription has no active payment to cancel",
			})
		default:
			log.Errorf("cancel of subscription %d for user %d failed: %v", subscriptionID, userID, err)
			return internalError(c)
		}
	}

	return c.JSON(fiber.Map{
		"id":          sub.ID,
		"status":      sub.Status,
		"canceled_at": sub.CanceledAt,
	})
}

// HandlePlans returns the purchasable plan catalog. Public.
func HandlePlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": getPaymentService().Plans()})
}
