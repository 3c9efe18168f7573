// Package natsgath publishes grading events to a NATS subject.
package natsgath

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/programme-lv/grader/internal/gatherer"
)

// Publisher is the part of *nats.Conn the gatherer needs.
type Publisher interface {
	Publish(subj string, data []byte) error
	Flush() error
}

type sender struct {
	pub     Publisher
	subject string
}

func (s *sender) Send(data []byte) error {
	return s.pub.Publish(s.subject, data)
}

func (s *sender) Flush() error {
	return s.pub.Flush()
}

// New creates a gatherer that streams events to subject.
func New(pub Publisher, subject string, logger *slog.Logger) *gatherer.Stream {
	return gatherer.NewStream(&sender{pub: pub, subject: subject}, logger)
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("grader"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from nats", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
