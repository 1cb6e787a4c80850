// Package natsstan carries invoice jobs and invoice notifications over NATS
// Streaming.
package natsstan

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stan "github.com/nats-io/stan.go"
)

// Config describes the streaming cluster connection.
type Config struct {
	URL       string
	ClusterID string
	ClientID  string
}

// Connect opens a streaming connection. A lost connection is logged; the
// process is expected to restart.
func Connect(cfg Config, logger *slog.Logger) (stan.Conn, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("orderflow-%d", time.Now().UnixNano())
	}

	sc, err := stan.Connect(cfg.ClusterID, clientID,
		stan.NatsURL(cfg.URL),
		stan.Pings(10, 5),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			logger.Error("nats streaming connection lost", "error", reason, "alert", true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats streaming %s: %w", cfg.URL, err)
	}
	return sc, nil
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// jobMessage is the invoice job payload. Only the order id travels.
type jobMessage struct {
	OrderID string `json:"order_id"`
}

type notificationMessage struct {
	UserID    string    `json:"user_id"`
	InvoiceID string    `json:"invoice_id"`
	SentAt    time.Time `json:"sent_at"`
}

func publishJSON(conn publisher, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", subject, err)
	}
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}
