package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/HaDo2003/DTechAPI-sub002/pkg/config"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/db/models"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/enums"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/logger"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox"
	"github.com/HaDo2003/DTechAPI-sub002/pkg/outbox/registry"
)

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePubSub struct {
	pingErr error
}

func (f *fakePubSub) Ping(context.Context) error { return f.pingErr }

func (f *fakePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	events := f.events
	f.events = nil
	return events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeRegistry struct {
	topic   string
	failFor map[uuid.UUID]error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if err, ok := f.failFor[event.ID]; ok {
		return nil, err
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         f.topic,
		},
		Envelope: envelope,
	}, nil
}

type fakePublisher struct {
	errFor   map[string]error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if err, ok := f.errFor[msg.Attributes["aggregate_id"]]; ok {
		return &fakeResult{err: err}
	}
	return &fakeResult{id: "server-id"}
}

type fakeResult struct {
	id  string
	err error
}

func (f *fakeResult) Get(context.Context) (string, error) { return f.id, f.err }

func mustEnvelopePayload(t *testing.T) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	}
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return raw
}

func newOutboxEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t),
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

type publisherHarness struct {
	svc       *Service
	repo      *fakeRepo
	dlq       *fakeDLQRepo
	publisher *fakePublisher
	registry  *fakeRegistry
}

func newTestService(t *testing.T) *publisherHarness {
	t.Helper()

	repo := &fakeRepo{}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{errFor: map[string]error{}}
	reg := &fakeRegistry{topic: "dtech-order-events", failFor: map[uuid.UUID]error{}}

	cfg := &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 10,
			MaxAttempts:    3,
		},
	}

	svc, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test"}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSub{},
		Repository:       repo,
		Registry:         reg,
		DLQRepository:    dlq,
		PublisherFactory: func(topic string) publisher { return pub },
	})
	require.NoError(t, err)

	return &publisherHarness{svc: svc, repo: repo, dlq: dlq, publisher: pub, registry: reg}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	h := newTestService(t)
	first := newOutboxEvent(t, 0)
	second := newOutboxEvent(t, 1)
	h.repo.events = []models.OutboxEvent{first, second}

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, h.repo.published)
	assert.Empty(t, h.repo.failed)
	assert.Empty(t, h.dlq.entries)

	require.Len(t, h.publisher.messages, 2)
	msg := h.publisher.messages[0]
	assert.Equal(t, string(enums.EventOrderPlaced), msg.Attributes["event_type"])
	assert.Equal(t, string(enums.AggregateOrder), msg.Attributes["aggregate_type"])
	assert.NotEmpty(t, msg.Attributes["event_id"])
	assert.JSONEq(t, string(first.Payload), string(msg.Data))
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	h := newTestService(t)

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, h.publisher.messages)
}

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	h := newTestService(t)
	failing := newOutboxEvent(t, 0)
	healthy := newOutboxEvent(t, 0)
	h.repo.events = []models.OutboxEvent{failing, healthy}
	h.publisher.errFor[failing.AggregateID.String()] = errors.New("broker unavailable")

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Equal(t, []uuid.UUID{failing.ID}, h.repo.failed)
	assert.Equal(t, []uuid.UUID{healthy.ID}, h.repo.published)
	assert.Empty(t, h.repo.terminal)
	assert.Empty(t, h.dlq.entries)
}

func TestProcessBatchMaxAttemptsGoesToDLQ(t *testing.T) {
	h := newTestService(t)
	exhausted := newOutboxEvent(t, 2)
	h.repo.events = []models.OutboxEvent{exhausted}
	h.publisher.errFor[exhausted.AggregateID.String()] = errors.New("broker unavailable")

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Empty(t, h.repo.failed)
	assert.Equal(t, []uuid.UUID{exhausted.ID}, h.repo.terminal)

	require.Len(t, h.dlq.entries, 1)
	entry := h.dlq.entries[0]
	assert.Equal(t, exhausted.ID, entry.EventID)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, entry.ErrorReason)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "max publish attempts")
}

func TestProcessBatchNonRetryableResolve(t *testing.T) {
	h := newTestService(t)
	malformed := newOutboxEvent(t, 0)
	h.repo.events = []models.OutboxEvent{malformed}
	h.registry.failFor[malformed.ID] = registry.NewNonRetryableError(errors.New("unknown event type"))

	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	assert.Empty(t, h.publisher.messages)
	assert.Equal(t, []uuid.UUID{malformed.ID}, h.repo.terminal)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
}

func TestNextBackoffDoublesUpToCap(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, time.Second, nextBackoff(base, base, maxBackoff))
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff, base, maxBackoff))
}
