package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/location"
)

// Job types carried in PrefetchMessage.JobType.
const (
	JobPrefetchLegs = "prefetch_legs"
	JobHealthCheck  = "health_check"
)

// errUnknownJob marks messages that are acked without processing.
var errUnknownJob = errors.New("unknown job type")

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	prefetchJob      *PrefetchJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	PrefetchJob      *PrefetchJob
	Logger           zerolog.Logger
}

// PrefetchMessage is the payload of a worker job message.
type PrefetchMessage struct {
	JobType string           `json:"job_type"`
	Targets []PrefetchTarget `json:"targets,omitempty"`

	// OrderedRoute is shorthand for a single unnamed target.
	OrderedRoute []location.ID `json:"ordered_route,omitempty"`
}

// AllTargets returns Targets plus OrderedRoute as a target when set.
func (m PrefetchMessage) AllTargets() []PrefetchTarget {
	targets := append([]PrefetchTarget(nil), m.Targets...)
	if len(m.OrderedRoute) > 0 {
		targets = append(targets, PrefetchTarget{Route: m.OrderedRoute})
	}
	return targets
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		prefetchJob:      cfg.PrefetchJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if h.process(ctx, msg.Data, logger) {
		msg.Ack()
		return
	}
	msg.Nack()
}

// process runs the job in data and reports whether the message should be acked.
// Malformed payloads and failed jobs are nacked; unknown job types are acked
// so they are not redelivered forever.
func (h *PubSubHandler) process(ctx context.Context, data []byte, logger zerolog.Logger) bool {
	startTime := time.Now()

	var m PrefetchMessage
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	var err error
	switch m.JobType {
	case JobPrefetchLegs:
		err = h.handlePrefetch(ctx, m.AllTargets())
	case JobHealthCheck:
		err = h.handleHealthCheck(ctx)
	default:
		err = errUnknownJob
	}

	if errors.Is(err, errUnknownJob) {
		logger.Warn().Str("job_type", m.JobType).Msg("unknown job type")
		return true
	}
	if err != nil {
		logger.Error().Err(err).Str("job_type", m.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", m.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (h *PubSubHandler) handlePrefetch(ctx context.Context, targets []PrefetchTarget) error {
	result, err := h.prefetchJob.Run(ctx, targets)
	if err != nil {
		return err
	}

	// Consider it successful if more than half the fetches succeeded.
	if result.Failed > result.Fetched {
		return fmt.Errorf("too many prefetch failures: %d/%d", result.Failed, result.TotalLegs)
	}
	return nil
}

// handleHealthCheck verifies the job's collaborators without touching the provider.
func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	if h.prefetchJob == nil {
		return errors.New("prefetch job not configured")
	}
	if _, err := h.prefetchJob.locations.List(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	h.logger.Debug().Msg("health check passed")
	return nil
}
