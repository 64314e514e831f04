package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const ProcessTimeHeader = "X-Process-Time"

// Timing sets X-Process-Time (seconds) on every response and logs slow
// requests.
func Timing(slow time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		c.Set(ProcessTimeHeader, fmt.Sprintf("%.6f", elapsed.Seconds()))

		if slow > 0 && elapsed > slow {
			logger.Warn("Slow request",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Duration("elapsed", elapsed),
			)
		}
		return err
	}
}
