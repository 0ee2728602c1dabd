//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"passage/internal/collection"
	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	"passage/pkg/testutil/containers"
)

const testTopic = "candidate-events-test"

type KafkaSourceSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *kgo.Client
	ctx      context.Context
}

func TestKafkaSourceSuite(t *testing.T) {
	suite.Run(t, new(KafkaSourceSuite))
}

func (s *KafkaSourceSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redpanda = containers.NewRedpandaContainer(s.T())
	s.redpanda.CreateTopic(s.T(), testTopic)

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.DefaultProduceTopic(testTopic),
	)
	s.Require().NoError(err)
	s.producer = producer
}

func (s *KafkaSourceSuite) TearDownSuite() {
	s.producer.Close()
	s.redpanda.Terminate(s.ctx)
}

func (s *KafkaSourceSuite) publish(env envelope) {
	payload, err := json.Marshal(env)
	s.Require().NoError(err)
	s.Require().NoError(s.producer.ProduceSync(s.ctx, &kgo.Record{
		Key:   []byte(env.ID),
		Value: payload,
	}).FirstErr())
}

func (s *KafkaSourceSuite) subscribe() (<-chan collection.Delta, func()) {
	source, err := New(Config{Brokers: []string{s.redpanda.Broker}, Topic: testTopic})
	s.Require().NoError(err)

	deltas := make(chan collection.Delta, 16)
	unsubscribe, err := source.Subscribe(s.ctx, func(ctx context.Context, d collection.Delta) {
		deltas <- d
	})
	s.Require().NoError(err)

	// The consumer starts at the end of the topic; give it a moment to join
	// before producing, or the first records race the offset assignment.
	time.Sleep(2 * time.Second)
	return deltas, unsubscribe
}

func (s *KafkaSourceSuite) receive(deltas <-chan collection.Delta) collection.Delta {
	select {
	case d := <-deltas:
		return d
	case <-time.After(15 * time.Second):
		s.FailNow("timed out waiting for delta")
		return collection.Delta{}
	}
}

func (s *KafkaSourceSuite) TestDeliversDecodedDeltas() {
	deltas, unsubscribe := s.subscribe()
	defer unsubscribe()

	candidateID := id.NewCandidateID()
	s.publish(envelope{
		Op: string(collection.OpInsert),
		ID: candidateID.String(),
		Candidate: &models.Candidate{
			ID:       candidateID,
			FullName: "Asha Lama",
			Stage:    models.StageRegistered,
		},
	})

	got := s.receive(deltas)
	s.Equal(collection.OpInsert, got.Op)
	s.Require().NotNil(got.Candidate)
	s.Equal(candidateID, got.Candidate.ID)
	s.NoError(got.Validate())
}

func (s *KafkaSourceSuite) TestDeliversDeleteByID() {
	deltas, unsubscribe := s.subscribe()
	defer unsubscribe()

	candidateID := id.NewCandidateID()
	s.publish(envelope{Op: string(collection.OpDelete), ID: candidateID.String()})

	got := s.receive(deltas)
	s.Equal(collection.OpDelete, got.Op)
	s.Equal(candidateID, got.Key())
}

func (s *KafkaSourceSuite) TestGarbledRecordYieldsInvalidDelta() {
	deltas, unsubscribe := s.subscribe()
	defer unsubscribe()

	s.Require().NoError(s.producer.ProduceSync(s.ctx, &kgo.Record{
		Value: []byte("not json"),
	}).FirstErr())

	got := s.receive(deltas)
	s.Error(got.Validate())
}

func (s *KafkaSourceSuite) TestUnsubscribeStopsDelivery() {
	deltas, unsubscribe := s.subscribe()
	unsubscribe()
	unsubscribe() // idempotent

	s.publish(envelope{Op: string(collection.OpDelete), ID: id.NewCandidateID().String()})

	select {
	case d := <-deltas:
		s.Failf("unexpected delivery", "delta after unsubscribe: %+v", d)
	case <-time.After(3 * time.Second):
	}
}
