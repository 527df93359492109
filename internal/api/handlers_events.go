package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nestling/internal/models"
	"github.com/terraincognita07/nestling/internal/services"
)

func (handler *Handler) ListEvents(c *fiber.Ctx) error {
	category := models.Category(strings.TrimSpace(c.Query("category")))
	if category != "" && !category.Valid() {
		return apiError(c, fiber.StatusBadRequest, "invalid category")
	}
	events := handler.tracker.Events(category, strings.TrimSpace(c.Query("subtype")))
	return c.JSON(fiber.Map{"events": newEventViews(events)})
}

func (handler *Handler) GetEvent(c *fiber.Ctx) error {
	event, ok := handler.tracker.Event(c.Params("id"))
	if !ok {
		return apiError(c, fiber.StatusNotFound, "event not found")
	}
	return c.JSON(newEventView(event))
}

func (handler *Handler) CreateEvent(c *fiber.Ctx) error {
	var input services.EventInput
	if err := decodeBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	event, err := handler.tracker.AddEvent(input)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newEventView(event))
}

func (handler *Handler) UpdateEvent(c *fiber.Ctx) error {
	var input services.EventInput
	if err := decodeBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	event, err := handler.tracker.UpdateEvent(c.Params("id"), input)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(newEventView(event))
}

func (handler *Handler) DeleteEvent(c *fiber.Ctx) error {
	if err := handler.tracker.DeleteEvent(c.Params("id")); err != nil {
		return handler.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) ScheduledMedicines(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"medicines": newEventViews(handler.tracker.ScheduledMedicines())})
}
