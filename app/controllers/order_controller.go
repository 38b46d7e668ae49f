package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/payment"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/usercontext"
)

type orderCheckoutRequest struct {
	ItemType string `json:"item_type" validate:"required,oneof=product note"`
	ItemID   uint   `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=100"`
}

// HandleOrderCheckout creates a hosted JPY checkout for a product or note.
func HandleOrderCheckout(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req orderCheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := getPaymentService().CreateOrderCheckout(c.Context(), payment.CreateOrderCheckoutInput{
		UserID:   userID,
		ItemType: req.ItemType,
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotFound):
			return notFound(c, "item not found")
		case errors.Is(err, payment.ErrOutOfStock):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "out_of_stock",
				"message": "requested quantity exceeds remaining stock",
			})
		default:
			log.Errorf("order checkout for user %d failed: %v", userID, err)
			return internalError(c)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}
