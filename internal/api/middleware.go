package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/nestling/internal/i18n"
)

const contextLanguageKey = "current_language"

func currentLanguage(c *fiber.Ctx) string {
	language, _ := c.Locals(contextLanguageKey).(string)
	return language
}

func (handler *Handler) localizer(c *fiber.Ctx) i18n.Localizer {
	language := currentLanguage(c)
	if language == "" {
		language = handler.i18n.DefaultLanguage()
	}
	return handler.i18n.Localizer(language)
}
