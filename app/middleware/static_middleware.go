package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// IgnoreProbes answers browser and scanner discovery probes with a stub
// so they do not reach the API handlers or pollute the error log.
func IgnoreProbes() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/.well-known/") {
			return c.JSON(fiber.Map{"status": "ignored"})
		}
		return c.Next()
	}
}
