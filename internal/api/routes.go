package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/favicon.ico", sendNoContent)
	registerAPIRoutes(app, handler)
	app.Use(handler.NotFound)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api", handler.LanguageMiddleware)

	events := api.Group("/events")
	events.Get("", handler.ListEvents)
	events.Post("", handler.CreateEvent)
	events.Get("/:id", handler.GetEvent)
	events.Put("/:id", handler.UpdateEvent)
	events.Delete("/:id", handler.DeleteEvent)

	sleep := api.Group("/sleep")
	sleep.Get("/ongoing", handler.GetOngoingSleep)
	sleep.Post("/start", handler.StartSleep)
	sleep.Post("/end", handler.EndSleep)
	sleep.Post("/cancel", handler.CancelSleep)

	predictions := api.Group("/predictions")
	predictions.Get("", handler.ListPredictions)
	predictions.Get("/:key", handler.GetPrediction)

	api.Get("/anomalies", handler.ListAnomalies)
	api.Get("/dashboard", handler.GetDashboard)
	api.Get("/medicines/scheduled", handler.ScheduledMedicines)
	api.Get("/notices", handler.ListNotices)

	api.Get("/pump-schedule", handler.GetPumpSchedule)
	api.Put("/pump-schedule", handler.UpdatePumpSchedule)

	alarms := api.Group("/alarms")
	alarms.Get("", handler.ListAlarms)
	alarms.Get("/feed", handler.AlarmFeed)
	alarms.Post("/pause", handler.PauseAlarms)
	alarms.Post("/resume", handler.ResumeAlarms)
	alarms.Post("/:key/dismiss", handler.DismissAlarm)
	alarms.Post("/:key/snooze", handler.SnoozeAlarm)
}

func sendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
