package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) GetOngoingSleep(c *fiber.Ctx) error {
	ongoing, ok := handler.tracker.OngoingSleep()
	if !ok {
		return c.JSON(fiber.Map{"ongoingSleep": nil})
	}
	return c.JSON(fiber.Map{"ongoingSleep": ongoingSleepView{
		StartTime: millisOrNull(ongoing.StartTime),
		Elapsed:   durationMillisOrNull(handler.tracker.Now().Sub(ongoing.StartTime)),
	}})
}

func (handler *Handler) StartSleep(c *fiber.Ctx) error {
	var payload sleepStartPayload
	if err := decodeBody(c, &payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ongoing, err := handler.tracker.StartSleep(payload.StartTime.Time)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ongoingSleep": ongoingSleepView{
		StartTime: millisOrNull(ongoing.StartTime),
		Elapsed:   durationMillisOrNull(handler.tracker.Now().Sub(ongoing.StartTime)),
	}})
}

func (handler *Handler) EndSleep(c *fiber.Ctx) error {
	var payload sleepEndPayload
	if err := decodeBody(c, &payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	event, err := handler.tracker.EndSleep(payload.EndTime.Time, payload.Notes)
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newEventView(event))
}

func (handler *Handler) CancelSleep(c *fiber.Ctx) error {
	if err := handler.tracker.CancelSleep(); err != nil {
		return handler.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
