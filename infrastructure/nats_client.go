package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	// EventStreamName is the JetStream stream every earnify subject is captured in
	EventStreamName = "earnify_events"

	// clientName identifies this service on the NATS connection and in event envelopes
	clientName = "earnify"
)

var errNotConnected = errors.New("not connected to NATS JetStream")

// NATSOptions tunes the connection and the event stream
type NATSOptions struct {
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration

	// StreamMaxAge bounds how long payout records stay replayable
	StreamMaxAge time.Duration
	// DedupWindow is how long JetStream remembers message IDs
	DedupWindow time.Duration
}

func defaultNATSOptions() NATSOptions {
	return NATSOptions{
		Name:          clientName,
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
		StreamMaxAge:  7 * 24 * time.Hour,
		DedupWindow:   2 * time.Minute,
	}
}

// NATSClient is the JetStream transport behind the event publisher
type NATSClient struct {
	servers string
	opts    NATSOptions
	nc      *nats.Conn
	js      nats.JetStreamContext
}

// NewNATSClient creates a client for a comma-separated server list
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{servers: servers, opts: defaultNATSOptions()}
}

// Connect dials the servers. ctx bounds only the initial dial.
func (c *NATSClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nc, err := nats.Connect(c.servers,
		nats.Name(c.opts.Name),
		nats.MaxReconnects(c.opts.MaxReconnects),
		nats.ReconnectWait(c.opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected, payout records will buffer until reconnect")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("server", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}
	c.nc, c.js = nc, js

	log.WithField("servers", c.servers).Info("Connected to NATS")
	return nil
}

// Close drains in-flight publishes before closing
func (c *NATSClient) Close() error {
	if c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

func (c *NATSClient) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// EnsureStream creates the stream, or widens an existing one to cover subjects
func (c *NATSClient) EnsureStream(streamName string, subjects []string) error {
	if c.js == nil {
		return errNotConnected
	}

	info, err := c.js.StreamInfo(streamName)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:        streamName,
			Description: "Ledger, payout and referral events",
			Subjects:    subjects,
			Retention:   nats.LimitsPolicy,
			Storage:     nats.FileStorage,
			MaxAge:      c.opts.StreamMaxAge,
			Duplicates:  c.opts.DedupWindow,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
		log.WithFields(log.Fields{
			"stream":   streamName,
			"subjects": subjects,
		}).Info("Created JetStream stream")
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	missing := false
	for _, s := range subjects {
		if !slices.Contains(info.Config.Subjects, s) {
			info.Config.Subjects = append(info.Config.Subjects, s)
			missing = true
		}
	}
	if !missing {
		return nil
	}
	if _, err := c.js.UpdateStream(&info.Config); err != nil {
		return fmt.Errorf("failed to extend subjects of stream %s: %w", streamName, err)
	}
	log.WithField("stream", streamName).Info("Extended JetStream stream subjects")
	return nil
}

// Publish waits for the JetStream ack. msgID lets the server drop redeliveries within the dedup window.
func (c *NATSClient) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	if c.js == nil {
		return errNotConnected
	}
	ack, err := c.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(msgID))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if ack.Duplicate {
		log.WithFields(log.Fields{
			"subject": subject,
			"msgId":   msgID,
		}).Debug("JetStream dropped duplicate message")
	}
	return nil
}
