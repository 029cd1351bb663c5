package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	RunsStreamName       = "RUNS"
	RunsSubjectBase      = "runs.trigger"
	ProgressStreamName   = "PROGRESS"
	ProgressSubjectBase  = "runs.progress"
	CompletedSubjectBase = "runs.completed"
)

// Producer publishes run triggers (consumed once by whichever engine
// instance picks them up) and run progress/completion events (fanned out
// to every subscriber, typically the API's websocket hub).
type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates JetStream streams if they don't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        RunsStreamName,
			Subjects:    []string{RunsSubjectBase + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      1 * time.Hour,
			MaxMsgs:     10000,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  30 * time.Second,
			Description: "Batch run triggers, one consumer per message",
		},
		{
			Name:        ProgressStreamName,
			Subjects:    []string{ProgressSubjectBase + ".>", CompletedSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Description: "Run progress and completion notifications",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// RunTrigger asks an engine instance to run one mall's batch.
type RunTrigger struct {
	RunID       string    `json:"run_id"`
	MallID      string    `json:"mall_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	JourneyDate string    `json:"journey_date"`
}

// RunProgress reports an in-flight batch's partial state. It is sent only
// through PublishRunProgress; the engine does not publish progress while a
// batch runs.
type RunProgress struct {
	RunID         string `json:"run_id"`
	MallID        string `json:"mall_id"`
	TargetsScored int    `json:"targets_scored"`
	TargetsTotal  int    `json:"targets_total"`
}

// RunCompleted reports a finished batch's summary counts.
type RunCompleted struct {
	RunID           string  `json:"run_id"`
	MallID          string  `json:"mall_id"`
	LinkedCount     int     `json:"linked_count"`
	AmbiguousCount  int     `json:"ambiguous_count"`
	NewVisitorCount int     `json:"new_visitor_count"`
	JourneyCount    int     `json:"journey_count"`
	OrphanCount     int     `json:"orphan_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	Err             string  `json:"error,omitempty"`
}

// PublishRunTrigger enqueues a batch run for a single consumer to pick up.
func (p *Producer) PublishRunTrigger(ctx context.Context, trigger RunTrigger) error {
	payload, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("marshal run trigger: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", RunsSubjectBase, trigger.MallID)
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish run trigger: %w", err)
	}
	return nil
}

// PublishRunProgress fans out an in-flight batch's progress to every
// subscriber (the API's websocket hub, in practice).
func (p *Producer) PublishRunProgress(ctx context.Context, progress RunProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal run progress: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", ProgressSubjectBase, progress.MallID)
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish run progress: %w", err)
	}
	return nil
}

// PublishRunCompleted fans out a finished batch's summary.
func (p *Producer) PublishRunCompleted(ctx context.Context, completed RunCompleted) error {
	payload, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("marshal run completed: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", CompletedSubjectBase, completed.MallID)
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish run completed: %w", err)
	}
	return nil
}

// QueueDepth returns the number of pending run triggers.
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, RunsStreamName)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
