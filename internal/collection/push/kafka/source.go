// Package kafka adapts a Kafka topic into the coordinator's push channel.
// The backend persistence service publishes one record per confirmed change,
// keyed by candidate id; this consumer decodes them into deltas. Delivery is
// at-least-once, which the coordinator absorbs by idempotent merges.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"passage/internal/collection"
	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
)

// Config holds the consumer settings.
type Config struct {
	Brokers []string
	Topic   string
	// Group is the consumer group; one group per session profile so each
	// session sees every delta.
	Group string
}

// envelope is the wire format published by the persistence service.
type envelope struct {
	Op        string            `json:"op"`
	ID        string            `json:"id"`
	Candidate *models.Candidate `json:"candidate,omitempty"`
}

// Source implements collection.PushSource over a Kafka topic.
type Source struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the consumer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// New builds a Kafka push source.
func New(cfg Config, opts ...Option) (*Source, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	s := &Source{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe starts consuming and invokes h for every record. The returned
// unsubscribe func stops delivery synchronously: it blocks until the poll
// loop has exited, so no handler call begins after it returns.
func (s *Source) Subscribe(ctx context.Context, h collection.Handler) (func(), error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if s.cfg.Group != "" {
		opts = append(opts, kgo.ConsumerGroup(s.cfg.Group))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.poll(loopCtx, client, h)
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			client.Close()
		})
	}
	return unsubscribe, nil
}

func (s *Source) poll(ctx context.Context, client *kgo.Client, h collection.Handler) {
	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if s.logger != nil {
				s.logger.Warn("kafka fetch error", "topic", topic, "partition", partition, "error", err)
			}
		})
		fetches.EachRecord(func(record *kgo.Record) {
			h(ctx, s.decode(record))
		})
	}
}

// decode maps a record to a delta. A record that cannot be decoded yields an
// invalid delta; the coordinator treats it as a mapping failure and refreshes
// rather than applying garbled state.
func (s *Source) decode(record *kgo.Record) collection.Delta {
	var env envelope
	if err := json.Unmarshal(record.Value, &env); err != nil {
		if s.logger != nil {
			s.logger.Warn("undecodable push record", "offset", record.Offset, "error", err)
		}
		return collection.Delta{}
	}

	delta := collection.Delta{Op: collection.Op(env.Op), Candidate: env.Candidate}
	if env.ID != "" {
		if candidateID, err := id.ParseCandidateID(env.ID); err == nil {
			delta.ID = candidateID
		}
	}
	return delta
}
