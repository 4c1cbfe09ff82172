package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"bloghub.com/internal/config"
	"bloghub.com/internal/domain"
)

// NewServer builds the fiber app with the shared middleware stack.
func NewServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.AppName,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	return app
}

// errorHandler 兜底处理未被 handler 捕获的错误
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"Error": fe.Message})
	}

	status := domain.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("unhandled error", "component", "api", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"Error": domain.PublicMessage(err)})
}
