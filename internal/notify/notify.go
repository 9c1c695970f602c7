// Package notify announces finished builds on a message bus.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "mdsite.builds"

// Event is the JSON payload published after every build.
type Event struct {
	BuildID    string    `json:"build_id"`
	Trigger    string    `json:"trigger"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Pages      int       `json:"pages"`
	DurationMS int64     `json:"duration_ms"`
	Revision   string    `json:"revision,omitempty"`
	Output     string    `json:"output"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoopPublisher drops every event. It is used when notifications are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes events as core NATS messages.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to url. An empty subject means DefaultSubject.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if url == "" {
		return nil, ferrors.ConfigError("notify.nats_url is required for notifications").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("mdsite"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, ferrors.NetworkError("connect to NATS").WithCause(err).WithContext("url", url).Build()
	}
	logger.Info("Build notifications enabled", slog.String("url", url), slog.String("subject", subjectOrDefault(subject)))
	return newNATSPublisher(nc, subject, logger), nil
}

func newNATSPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subjectOrDefault(subject), logger: logger}
}

func subjectOrDefault(subject string) string {
	if subject == "" {
		return DefaultSubject
	}
	return subject
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return ferrors.InternalError("encode build event").WithCause(err).Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.NetworkError("publish build event").WithCause(err).WithContext("subject", p.subject).Build()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.NetworkError("flush build event").WithCause(err).WithContext("subject", p.subject).Build()
	}
	p.logger.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("subject", p.subject))
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

var (
	_ Publisher = NoopPublisher{}
	_ Publisher = (*NATSPublisher)(nil)
)
