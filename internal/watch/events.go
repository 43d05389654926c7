package watch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event is one build lifecycle notification emitted during a watch session.
type Event struct {
	Type      string    `json:"type"` // build.started, build.finished, deploy.finished
	Workspace string    `json:"workspace"`
	BuildID   string    `json:"build_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers lifecycle events to interested subscribers.
type Publisher interface {
	Publish(ev Event)
	Close()
}

// NoopPublisher drops all events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}
func (NoopPublisher) Close()        {}

// NATSPublisher publishes events on a NATS subject. Delivery is best-effort:
// a publish failure is logged and never interrupts the pipeline.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("notepress"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	slog.Info("NATS event publishing enabled", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshalling event failed", "type", ev.Type, "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		slog.Warn("publishing event failed", "type", ev.Type, "error", err)
	}
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
