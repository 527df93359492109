package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nestling/internal/services"
)

func (handler *Handler) ListPredictions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"predictions": newPredictionViews(handler.tracker.Predictions())})
}

func (handler *Handler) GetPrediction(c *fiber.Ctx) error {
	key, ok := services.ParsePatternKey(c.Params("key"))
	if !ok {
		return apiError(c, fiber.StatusNotFound, "unknown prediction key")
	}
	return c.JSON(newPredictionView(handler.tracker.Predict(key)))
}

func (handler *Handler) ListAnomalies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"anomalies": newAnomalyViews(handler.tracker.Anomalies(), handler.localizer(c))})
}

func (handler *Handler) GetDashboard(c *fiber.Ctx) error {
	return c.JSON(newDashboardView(handler.tracker.Dashboard(), handler.localizer(c)))
}

func (handler *Handler) ListNotices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"notices": newNoticeViews(handler.tracker.TakeNotices(), handler.localizer(c))})
}
