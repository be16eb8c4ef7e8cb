package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// securityHeaders keeps the link secret out of caches and referrers
func securityHeaders(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderCacheControl, "no-store")
	ctx.Set("Pragma", "no-cache")
	ctx.Set(fiber.HeaderReferrerPolicy, "no-referrer")
	ctx.Set(fiber.HeaderXFrameOptions, "DENY")
	ctx.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	return ctx.Next()
}

// requestLogger logs one line per request. The query string is left out
// since it carries the reset secret.
func requestLogger(log *zap.Logger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		chainErr := ctx.Next()
		if chainErr != nil {
			if err := ctx.App().ErrorHandler(ctx, chainErr); err != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError)
			}
		}
		log.Info("request",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Int("status", ctx.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", ctx.GetRespHeader(fiber.HeaderXRequestID)),
		)
		return nil
	}
}
