package notify

import "github.com/terraincognita07/nestling/internal/services"

// Fanout forwards every output to each sink in order. Nil sinks are skipped.
type Fanout []services.AlarmSink

func NewFanout(sinks ...services.AlarmSink) Fanout {
	fanout := make(Fanout, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			fanout = append(fanout, sink)
		}
	}
	return fanout
}

func (fanout Fanout) AlarmFired(fired services.AlarmFired) {
	for _, sink := range fanout {
		sink.AlarmFired(fired)
	}
}

func (fanout Fanout) AlarmCleared(cleared services.AlarmCleared) {
	for _, sink := range fanout {
		sink.AlarmCleared(cleared)
	}
}
