package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/trip"
)

// Job types carried in BackfillMessage.JobType.
const (
	JobWeatherBackfill = "weather_backfill"
	JobBackfillSweep   = "backfill_sweep"
)

// Errors returned by Dispatcher.Handle for messages that must not be
// redelivered.
var (
	ErrMalformedMessage = errors.New("malformed backfill message")
	ErrUnknownJob       = errors.New("unknown job type")
)

// BackfillMessage is the Pub/Sub payload for backfill jobs.
type BackfillMessage struct {
	JobType string `json:"job_type"`
	UserID  string `json:"user_id,omitempty"`
	TripID  string `json:"trip_id,omitempty"`
}

// Dispatcher routes decoded backfill messages to the job.
type Dispatcher struct {
	job    *BackfillJob
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher for job.
func NewDispatcher(job *BackfillJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, logger: logger}
}

// Handle runs the job described by data. ErrMalformedMessage and
// ErrUnknownJob mark messages that will never succeed.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg BackfillMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobWeatherBackfill:
		if msg.UserID == "" || msg.TripID == "" {
			return fmt.Errorf("%w: user_id and trip_id are required", ErrMalformedMessage)
		}
		err := d.job.BackfillTrip(ctx, msg.UserID, msg.TripID)
		if errors.Is(err, ErrTooOld) {
			d.logger.Info().Str("trip_id", msg.TripID).Msg("skipping backfill for old trip")
			return nil
		}
		return err

	case JobBackfillSweep:
		result, err := d.job.Run(ctx)
		if err != nil {
			return err
		}
		// A sweep where nothing got through points at DMI being down; let
		// Pub/Sub redeliver it later.
		if result.Failed > 0 && result.Updated+result.NoData == 0 {
			return fmt.Errorf("backfill sweep failed for all %d trips", result.Failed)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
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
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
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
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	err := h.dispatcher.Handle(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrUnknownJob):
		logger.Warn().Err(err).Msg("dropping message")
		msg.Ack()
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	default:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed successfully")
		msg.Ack()
	}
}

// Publisher announces trips that need a weather backfill. It satisfies
// trip.BackfillNotifier.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    zerolog.Logger
}

// PublisherConfig holds configuration for the Publisher.
type PublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPublisher creates a publisher for the backfill topic.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		logger:    cfg.Logger,
	}, nil
}

// NotifyWeatherBackfill publishes a weather_backfill job for one trip and
// waits for the server to accept it.
func (p *Publisher) NotifyWeatherBackfill(ctx context.Context, userID, tripID string) error {
	data, err := EncodeBackfillMessage(userID, tripID)
	if err != nil {
		return err
	}

	id, err := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"job_type": JobWeatherBackfill},
	}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing backfill for trip %s: %w", tripID, err)
	}

	p.logger.Debug().Str("trip_id", tripID).Str("message_id", id).Msg("backfill requested")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// EncodeBackfillMessage builds the weather_backfill payload for one trip.
func EncodeBackfillMessage(userID, tripID string) ([]byte, error) {
	data, err := json.Marshal(BackfillMessage{
		JobType: JobWeatherBackfill,
		UserID:  userID,
		TripID:  tripID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding backfill message: %w", err)
	}
	return data, nil
}

var _ trip.BackfillNotifier = (*Publisher)(nil)
