package api

import (
	"github.com/terraincognita07/nestling/internal/i18n"
	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/models"
	"github.com/terraincognita07/nestling/internal/notify"
	"github.com/terraincognita07/nestling/internal/services"
)

type Handler struct {
	tracker *services.Tracker
	feed    *notify.Feed
	i18n    *i18n.Manager
	logger  logging.Logger
}

func NewHandler(tracker *services.Tracker, feed *notify.Feed, manager *i18n.Manager, logger logging.Logger) *Handler {
	if feed == nil {
		feed = notify.NewFeed(notify.DefaultFeedCapacity)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		tracker: tracker,
		feed:    feed,
		i18n:    manager,
		logger:  logger,
	}
}

type sleepStartPayload struct {
	StartTime models.FlexTime `json:"startTime"`
}

type sleepEndPayload struct {
	EndTime models.FlexTime `json:"endTime"`
	Notes   string          `json:"notes"`
}

type snoozePayload struct {
	Minutes models.FlexFloat `json:"minutes"`
}

type resumePayload struct {
	Force bool `json:"force"`
}
