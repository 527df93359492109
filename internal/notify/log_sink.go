package notify

import (
	"time"

	"github.com/terraincognita07/nestling/internal/logging"
	"github.com/terraincognita07/nestling/internal/services"
)

type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LogSink{logger: logger}
}

func (sink *LogSink) AlarmFired(fired services.AlarmFired) {
	sink.logger.Infof("alarm fired: key=%s target=%s message=%q sound=%t",
		fired.Key, fired.Target.Format(time.RFC3339), fired.Message, fired.Sound)
}

func (sink *LogSink) AlarmCleared(cleared services.AlarmCleared) {
	sink.logger.Infof("alarm cleared: key=%s at=%s", cleared.Key, cleared.ClearedAt.Format(time.RFC3339))
}
