package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type AppOptions struct {
	AccessLog bool
}

// NewApp builds the JSON app served to the local UI shell.
func NewApp(handler *Handler, options AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Nestling",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fiberErr, ok := err.(*fiber.Error); ok {
				return apiError(c, fiberErr.Code, fiberErr.Message)
			}
			handler.logger.Errorf("api: %s %s: %v", c.Method(), c.Path(), err)
			return apiError(c, fiber.StatusInternalServerError, "internal error")
		},
	})

	app.Use(recover.New())
	if options.AccessLog {
		app.Use(logger.New())
	}
	RegisterRoutes(app, handler)
	return app
}
