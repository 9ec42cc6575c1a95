package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/recorder"
)

// Job types carried in the job_type attribute or message field.
const (
	JobPredictionRecord = "prediction_record"
	JobSweep            = "sweep"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
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
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if h.processor.Handle(ctx, msg.Data, msg.Attributes, logger) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Processor decides what to do with one message, independent of the transport.
type Processor struct {
	Recorder recorder.Recorder
	Sweep    *SweepJob
}

type jobMessage struct {
	JobType string `json:"job_type"`
}

// Handle processes a message and reports whether it should be acked. Malformed
// and unknown messages are acked so they are not redelivered forever.
func (p *Processor) Handle(ctx context.Context, data []byte, attrs map[string]string, logger zerolog.Logger) bool {
	startTime := time.Now()

	jobType := attrs["job_type"]
	if jobType == "" {
		var msg jobMessage
		if err := json.Unmarshal(data, &msg); err == nil && msg.JobType != "" {
			jobType = msg.JobType
		} else {
			// Publishers of prediction records send the bare record.
			jobType = JobPredictionRecord
		}
	}

	var err error
	switch jobType {
	case JobPredictionRecord:
		err = p.persist(ctx, data)
		if errors.Is(err, recorder.ErrInvalidRecord) {
			logger.Error().Err(err).Msg("dropping malformed prediction record")
			return true
		}
	case JobSweep:
		err = p.sweep(ctx)
	default:
		logger.Warn().Str("job_type", jobType).Msg("unknown job type")
		return true
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (p *Processor) persist(ctx context.Context, data []byte) error {
	rec, err := recorder.Decode(data)
	if err != nil {
		return err
	}
	if p.Recorder == nil {
		return errors.New("no recorder configured")
	}
	return p.Recorder.Record(ctx, rec)
}

func (p *Processor) sweep(ctx context.Context) error {
	if p.Sweep == nil {
		return errors.New("no sweep job configured")
	}

	result := p.Sweep.Run(ctx)

	// Most points failing means the model or a provider is down; retry later.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many sweep failures: %d/%d", result.Failed, result.Total)
	}
	return nil
}
