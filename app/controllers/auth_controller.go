package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HoshinoLab/CreatorBase/app/models"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/database"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/middleware"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/usercontext"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister creates a user account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	db := database.GetDB()

	var existing models.User
	err := db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"message": "email already registered",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("register lookup failed: %v", err)
		return internalError(c)
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return badRequest(c, err.Error())
	}
	user.Status = models.STATUS_ACTIVE

	if err := db.Create(user).Error; err != nil {
		log.Errorf("register create failed: %v", err)
		return internalError(c)
	}

	token, err := middleware.IssueToken(user)
	if err != nil {
		log.Errorf("register token issue failed: %v", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin verifies credentials and issues a JWT.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	db := database.GetDB()

	var user models.User
	// notice: login failures are deliberately indistinct
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "invalid credentials",
		})
	}
	if !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "invalid credentials",
		})
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "account is not active",
		})
	}

	token, err := middleware.IssueToken(&user)
	if err != nil {
		log.Errorf("login token issue failed: %v", err)
		return internalError(c)
	}

	db.Model(&user).Update("last_login_at", time.Now())

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// HandleMe returns the authenticated user's profile and point balance.
func HandleMe(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var user models.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		return notFound(c, "user not found")
	}

	balance, err := getPointsService().Balance(userID)
	if err != nil {
		log.Errorf("balance lookup for user %d failed: %v", userID, err)
		balance = user.PointBalance
	}

	return c.JSON(fiber.Map{
		"user":    user,
		"balance": balance,
	})
}
