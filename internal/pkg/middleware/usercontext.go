package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HoshinoLab/CreatorBase/app/models"
	"github.com/HoshinoLab/CreatorBase/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the user context for every request.
// Requests without a valid bearer token proceed anonymously; the RequireAuth
// and RequireAdmin guards decide per-route whether that is acceptable.
func UserContextMiddleware(c *fiber.Ctx) error {
	anonymous := func() error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	token := bearerToken(c)
	if token == "" {
		return anonymous()
	}

	claims, err := ParseToken(token)
	if err != nil {
		return anonymous()
	}

	isAdmin := claims.Role == models.ROLE_ADMIN
	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:     claims.UserID,
		Username:   claims.Name,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, claims.UserID)
	c.Locals(usercontext.KeyUsername, claims.Name)
	c.Locals(usercontext.KeyIsAdmin, isAdmin)

	return c.Next()
}
