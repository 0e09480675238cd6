// Package sinks contains notify.Sink implementations for logging and metrics.
package sinks

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/notify"
)

// LogSink writes every broadcast to a zap logger at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(evt notify.Event) {
	s.logger.Debug("broadcast",
		zap.String("name", string(evt.Name)),
		zap.String("sender", evt.Sender),
		zap.Time("ts", evt.TS),
	)
}
