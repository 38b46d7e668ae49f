package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/payment"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/points"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/usercontext"
)

// HandlePointBalance returns the caller's point balance.
func HandlePointBalance(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	balance, err := getPointsService().Balance(userID)
	if err != nil {
		log.Errorf("balance lookup for user %d failed: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"balance": balance})
}

// HandlePointTransactions returns a page of the caller's point ledger.
func HandlePointTransactions(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 20)

	txs, total, err := getPointsService().Transactions(userID, page, perPage)
	if err != nil {
		log.Errorf("transaction list for user %d failed: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"transactions": txs,
		"total":        total,
		"page":         page,
	})
}

type pointPurchaseRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=500"`
}

// HandlePointPurchase credits directly bought points.
func HandlePointPurchase(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req pointPurchaseRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Description == "" {
		req.Description = "Point purchase"
	}

	if err := getPointsService().Purchase(userID, req.Amount, req.Description); err != nil {
		if errors.Is(err, points.ErrMinimumPurchase) {
			return badRequest(c, err.Error())
		}
		log.Errorf("point purchase for user %d failed: %v", userID, err)
		return internalError(c)
	}

	balance, _ := getPointsService().Balance(userID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "balance": balance})
}

type pointSpendRequest struct {
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Description   string `json:"description" validate:"max=500"`
	RelatedItemID *uint  `json:"related_item_id"`
}

// HandlePointSpend debits points from the caller's balance.
func HandlePointSpend(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req pointSpendRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Description == "" {
		req.Description = "Point spend"
	}

	err := getPointsService().Spend(userID, req.Amount, req.Description, req.RelatedItemID)
	if err != nil {
		switch {
		case errors.Is(err, points.ErrInvalidAmount):
			return badRequest(c, err.Error())
		case errors.Is(err, payment.ErrInsufficientPoints):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "insufficient_points",
				"message": "point balance does not cover the amount",
			})
		default:
			log.Errorf("point spend for user %d failed: %v", userID, err)
			return internalError(c)
		}
	}

	balance, _ := getPointsService().Balance(userID)
	return c.JSON(fiber.Map{"ok": true, "balance": balance})
}

// HandleNotePurchase spends points on a note.
func HandleNotePurchase(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	noteID, err := c.ParamsInt("id")
	if err != nil || noteID <= 0 {
		return badRequest(c, "invalid note id")
	}

	err = getPointsService().PurchaseNote(userID, uint(noteID))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrRecordNotFound):
			return notFound(c, "note not found")
		case errors.Is(err, payment.ErrInsufficientPoints):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "insufficient_points",
				"message": "point balance does not cover the note price",
			})
		default:
			log.Errorf("note purchase %d for user %d failed: %v", noteID, userID, err)
			return internalError(c)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

type adminGrantRequest struct {
	UserID      uint   `json:"user_id" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=500"`
}

// HandleAdminPointGrant credits points out-of-band. Guarded by the internal
// API key middleware.
func HandleAdminPointGrant(c *fiber.Ctx) error {
	var req adminGrantRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := getPointsService().Grant(req.UserID, req.Amount, req.Description); err != nil {
		log.Errorf("admin grant of %d points to user %d failed: %v", req.Amount, req.UserID, err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}
