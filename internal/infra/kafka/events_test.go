package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/jnalv414/letip-lead-system-sub002/internal/core/domain"
	"github.com/jnalv414/letip-lead-system-sub002/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, async *fakeAsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: async,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "letip",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "letip-auth",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishSessionRotated(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	rotatedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	event := domain.SessionRotatedEvent{
		EventID:   "event-123",
		SessionID: "session-456",
		UserID:    "user-789",
		RotatedAt: rotatedAt,
		ExpiresAt: rotatedAt.Add(168 * time.Hour),
	}

	if err := publisher.PublishSessionRotated(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionRotated returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "letip.auth.session.rotated" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "auth.session.rotated" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}

		if got := envelope["user_id"]; got != event.UserID {
			t.Fatalf("unexpected user_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}

		if timestamp != rotatedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["session_id"]; got != event.SessionID {
			t.Fatalf("unexpected session_id: %v", got)
		}
	default:
		t.Fatal("no message produced")
	}
}

func TestPublishSessionIssuedGeneratesEventID(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	ua := "Mozilla/5.0"
	event := domain.SessionIssuedEvent{
		SessionID: "session-1",
		UserID:    "user-1",
		UserAgent: &ua,
		IssuedAt:  time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2026, 8, 8, 9, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishSessionIssued(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionIssued returned error: %v", err)
	}

	msg := <-asyncProducer.input

	bytes, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode returned error: %v", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(bytes, &envelope); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}

	eventID, ok := envelope["event_id"].(string)
	if !ok || eventID == "" {
		t.Fatalf("expected generated event_id, got %v", envelope["event_id"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}

	if got := payload["user_agent"]; got != ua {
		t.Fatalf("unexpected user_agent: %v", got)
	}
}

func TestPublishCanceledContext(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	// Fill the input buffer so the next publish has to wait on the context.
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishSessionsSwept(ctx, domain.SessionsSweptEvent{
		SweptAt: time.Now(),
		Removed: 3,
	})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}
