// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package eventbus is the optional Watermill+NATS publisher described in
// SPEC_FULL.md §4.12: a fire-and-forget fan-out of "program changed",
// "genre override applied", and "reconcile drift detected" events for
// downstream automation consumers (NeX-Up, the browser UI). It is never on
// the decision path — §5's ordering guarantees hold with or without it, and
// a publish failure is logged and dropped, never retried synchronously and
// never allowed to block a ControlLoop tick.
//
// Grounded on the teacher's internal/eventprocessor/publisher.go (Watermill
// NATS publisher wrapped in a circuit breaker, Nats-Msg-Id dedupe) and
// cmd/server/main.go's embedded-NATS-server bring-up, narrowed from the
// teacher's full media-event pipeline (consumers, DLQ, WAL, Router-based
// dispatch) down to the one thing this engine needs: publish three event
// kinds, nothing subscribes in-process.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats-server/v2/server"
	natsclient "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
)

// Topic names published by this engine (§4.12).
const (
	TopicProgramChanged        = "nexroll.program.changed"
	TopicGenreOverrideApplied  = "nexroll.genre.override.applied"
	TopicReconcileDriftDetected = "nexroll.reconcile.drift.detected"
)

// Config configures the optional publisher, mirroring config.EventBusConfig.
type Config struct {
	URL            string
	EmbeddedServer bool
	StoreDir       string
	PublishTimeout time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = natsclient.DefaultURL
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 10
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	return c
}

// ProgramChanged is published whenever the Arbiter's decision results in a
// new value actually sent to the media server (§4.4, §4.6).
type ProgramChanged struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`       // arbiter.Decision.Kind
	CategoryID *int64    `json:"category_id,omitempty"`
	Mode       string    `json:"mode"` // "shuffle" | "playlist"
	Value      string    `json:"value"`
}

// GenreOverrideApplied is published when §4.7's playback-driven apply flow
// actually changes the active category.
type GenreOverrideApplied struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	Genre      string    `json:"genre"`
	CategoryID int64     `json:"category_id"`
	RatingKey  string    `json:"rating_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ReconcileDriftDetected is published whenever the Reconciler (§4.8) finds
// the server's preroll preference has diverged from what the engine last
// applied, whether or not the reapply itself succeeded.
type ReconcileDriftDetected struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Expected  string    `json:"expected"`
	Actual    string    `json:"actual"`
	Reapplied bool      `json:"reapplied"`
}

// Publisher is the narrow surface the ControlLoop depends on. Satisfied by
// *NATSPublisher and by NopPublisher.
type Publisher interface {
	PublishProgramChanged(ctx context.Context, evt ProgramChanged)
	PublishGenreOverrideApplied(ctx context.Context, evt GenreOverrideApplied)
	PublishReconcileDriftDetected(ctx context.Context, evt ReconcileDriftDetected)
	Close() error
}

// NopPublisher is used when EventBusConfig.Enabled is false (the default):
// every call is a no-op, matching §4.12's "off by default, never on the
// decision path" requirement without callers needing a nil check.
type NopPublisher struct{}

func (NopPublisher) PublishProgramChanged(context.Context, ProgramChanged)                 {}
func (NopPublisher) PublishGenreOverrideApplied(context.Context, GenreOverrideApplied)      {}
func (NopPublisher) PublishReconcileDriftDetected(context.Context, ReconcileDriftDetected)  {}
func (NopPublisher) Close() error                                                           { return nil }

// NATSPublisher wraps a Watermill NATS JetStream publisher behind a circuit
// breaker, the same resilience shape as the teacher's eventprocessor.Publisher.
type NATSPublisher struct {
	pub    message.Publisher
	cb     *gobreaker.CircuitBreaker[interface{}]
	cfg    Config
	logger watermill.LoggerAdapter

	embedded *natsgo.Server

	mu     sync.Mutex
	closed bool
}

// New builds a NATSPublisher, optionally bringing up an embedded NATS
// server first (cfg.EmbeddedServer), the way the teacher's InitNATS does
// for local/standalone deployments that don't want to run NATS separately.
func New(cfg Config) (*NATSPublisher, error) {
	cfg = cfg.withDefaults()
	p := &NATSPublisher{cfg: cfg, logger: watermill.NewStdLogger(false, false)}

	natsURL := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := startEmbeddedServer(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("start embedded nats server: %w", err)
		}
		p.embedded = srv
		natsURL = srv.ClientURL()
	}

	natsOpts := []natsclient.Option{
		natsclient.RetryOnFailedConnect(true),
		natsclient.MaxReconnects(cfg.MaxReconnects),
		natsclient.ReconnectWait(cfg.ReconnectWait),
		natsclient.DisconnectErrHandler(func(_ *natsclient.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("component", "eventbus").Msg("nats disconnected")
			}
		}),
		natsclient.ReconnectHandler(func(nc *natsclient.Conn) {
			logging.Info().Str("component", "eventbus").Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         natsURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}
	pub, err := wmNats.NewPublisher(wmConfig, p.logger)
	if err != nil {
		if p.embedded != nil {
			p.embedded.Shutdown()
		}
		return nil, fmt.Errorf("create watermill nats publisher: %w", err)
	}
	p.pub = pub

	p.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "eventbus-publish",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
	})

	return p, nil
}

func startEmbeddedServer(storeDir string) (*natsgo.Server, error) {
	opts := &natsgo.Options{
		JetStream: true,
		StoreDir:  storeDir,
		Host:      "127.0.0.1",
		Port:      natsgo.RANDOM_PORT,
		NoLog:     true,
	}
	srv, err := natsgo.NewServer(opts)
	if err != nil {
		return nil, err
	}
	go srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		return nil, fmt.Errorf("embedded nats server did not become ready")
	}
	return srv, nil
}

// publish serializes payload as JSON and publishes it to topic, tolerating
// failure per §4.12: logged and dropped, never retried inline.
func (p *NATSPublisher) publish(ctx context.Context, topic string, eventID string, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	msg := message.NewMessage(eventID, payload)
	msg.Metadata.Set(natsclient.MsgIdHdr, eventID)

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.pub.Publish(topic, msg)
	})
	if err != nil {
		logging.Warn().Err(err).Str("component", "eventbus").Str("topic", topic).Msg("event publish failed")
		return
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	_ = ctx
}

func (p *NATSPublisher) PublishProgramChanged(ctx context.Context, evt ProgramChanged) {
	evt.EventID = orNewID(evt.EventID)
	data, err := marshal(evt)
	if err != nil {
		logging.Warn().Err(err).Str("component", "eventbus").Msg("marshal program.changed event failed")
		return
	}
	p.publish(ctx, TopicProgramChanged, evt.EventID, data)
}

func (p *NATSPublisher) PublishGenreOverrideApplied(ctx context.Context, evt GenreOverrideApplied) {
	evt.EventID = orNewID(evt.EventID)
	data, err := marshal(evt)
	if err != nil {
		logging.Warn().Err(err).Str("component", "eventbus").Msg("marshal genre.override.applied event failed")
		return
	}
	p.publish(ctx, TopicGenreOverrideApplied, evt.EventID, data)
}

func (p *NATSPublisher) PublishReconcileDriftDetected(ctx context.Context, evt ReconcileDriftDetected) {
	evt.EventID = orNewID(evt.EventID)
	data, err := marshal(evt)
	if err != nil {
		logging.Warn().Err(err).Str("component", "eventbus").Msg("marshal reconcile.drift.detected event failed")
		return
	}
	p.publish(ctx, TopicReconcileDriftDetected, evt.EventID, data)
}

// Serve implements suture.Service so the publisher can sit in the
// supervisor's engine layer (internal/supervisor): it simply blocks until
// ctx is canceled, then closes the underlying connection. Publishing itself
// never depends on Serve being called; a caller that never supervises the
// publisher can still invoke PublishProgramChanged etc. directly.
func (p *NATSPublisher) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// String implements fmt.Stringer, used by suture's event hook for logging.
func (p *NATSPublisher) String() string {
	return "eventbus-publisher"
}

// Close shuts down the publisher and, if started, the embedded server.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.pub.Close()
	if p.embedded != nil {
		p.embedded.Shutdown()
	}
	return err
}

func marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
