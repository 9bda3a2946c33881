package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes the message to the log instead of delivering it (dev default).
type LogNotifier struct {
	from   string
	logger *zap.Logger
}

func NewLogNotifier(from string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{from: from, logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("Notification",
		zap.String("from", n.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
