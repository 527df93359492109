package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nestling/internal/services"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// respondError maps engine errors onto status codes.
func (handler *Handler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		return apiError(c, fiber.StatusNotFound, "event not found")
	case errors.Is(err, services.ErrUnknownAlarmKey):
		return apiError(c, fiber.StatusNotFound, "unknown alarm")
	case errors.Is(err, services.ErrInvalidInput):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPersistenceFailed):
		handler.logger.Errorf("api: %s %s: %v", c.Method(), c.Path(), err)
		return apiError(c, fiber.StatusServiceUnavailable, "storage unavailable")
	default:
		handler.logger.Errorf("api: %s %s: %v", c.Method(), c.Path(), err)
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

// decodeBody accepts an empty body as the zero payload.
func decodeBody(c *fiber.Ctx, target interface{}) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, target)
}

func parseSeq(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func millisOrNull(value time.Time) *int64 {
	if value.IsZero() {
		return nil
	}
	millis := value.UnixMilli()
	return &millis
}

func durationMillisOrNull(value time.Duration) *int64 {
	if value <= 0 {
		return nil
	}
	millis := value.Milliseconds()
	return &millis
}

func stringOrNull(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
