package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nestling/internal/models"
)

func (handler *Handler) GetPumpSchedule(c *fiber.Ctx) error {
	return c.JSON(handler.pumpScheduleView(handler.tracker.PumpSchedule()))
}

func (handler *Handler) UpdatePumpSchedule(c *fiber.Ctx) error {
	var schedule models.PumpSchedule
	if err := decodeBody(c, &schedule); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := handler.tracker.SetPumpSchedule(schedule); err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(handler.pumpScheduleView(schedule))
}

func (handler *Handler) pumpScheduleView(schedule models.PumpSchedule) pumpScheduleView {
	view := pumpScheduleView{IntervalHours: schedule.IntervalHours, StartTime: schedule.StartTime}
	if next, ok := handler.tracker.NextPumpTime(); ok {
		view.NextPumpTime = millisOrNull(next)
	}
	return view
}
