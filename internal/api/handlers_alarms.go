package api

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nestling/internal/services"
)

func (handler *Handler) ListAlarms(c *fiber.Ctx) error {
	statuses, paused := handler.tracker.Alarms()
	return c.JSON(fiber.Map{
		"paused": paused,
		"alarms": newAlarmViews(statuses, handler.localizer(c)),
	})
}

// AlarmFeed returns fire and clear outputs newer than ?after=<seq>.
func (handler *Handler) AlarmFeed(c *fiber.Ctx) error {
	after, ok := parseSeq(c.Query("after"))
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid after")
	}
	return c.JSON(fiber.Map{
		"lastSeq": handler.feed.LastSeq(),
		"entries": newFeedEntryViews(handler.feed.After(after), handler.localizer(c)),
	})
}

func (handler *Handler) DismissAlarm(c *fiber.Ctx) error {
	dismissed, err := handler.tracker.DismissAlarm(c.Params("key"))
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"dismissed": dismissed})
}

func (handler *Handler) SnoozeAlarm(c *fiber.Ctx) error {
	var payload snoozePayload
	if err := decodeBody(c, &payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if !payload.Minutes.Set {
		return apiError(c, fiber.StatusBadRequest, "minutes is required")
	}

	minutes := payload.Minutes.Value
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return apiError(c, fiber.StatusBadRequest, "minutes must be a finite number")
	}
	// Clamped into int range; the engine still rejects anything outside (0, max].
	minutes = math.Max(0, math.Min(minutes, services.MaxSnoozeMinutes+1))

	until, err := handler.tracker.SnoozeAlarm(c.Params("key"), int(minutes))
	if err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"snoozedUntil": millisOrNull(until)})
}

func (handler *Handler) PauseAlarms(c *fiber.Ctx) error {
	if err := handler.tracker.PauseAlarms(); err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"paused": true})
}

func (handler *Handler) ResumeAlarms(c *fiber.Ctx) error {
	var payload resumePayload
	if err := decodeBody(c, &payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := handler.tracker.ResumeAlarms(payload.Force); err != nil {
		return handler.respondError(c, err)
	}
	return c.JSON(fiber.Map{"paused": false})
}
