package messaging

import (
	"context"
	"log/slog"
)

// LogNotifier records invoice notifications in the log instead of delivering
// them. Used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendInvoiceNotification(ctx context.Context, userID, invoiceID string) error {
	n.logger.InfoContext(ctx, "notification::invoice_ready", "user_id", userID, "invoice_id", invoiceID)
	return nil
}
