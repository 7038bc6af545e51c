package messaging

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-wallet-service/config"
	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:        uuid.New(),
		EventType: domain.EventCheckoutCompleted,
		Key:       "user-1",
		Payload:   []byte(`{"total":"40"}`),
		CreatedAt: time.Now().UTC(),
	}
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_Publish_SignsPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	signer := mocks.NewMockSignatureService(ctrl)
	w := &fakeWriter{}
	cfg := config.KafkaConfig{Topic: "food-wallet.events", WriteTimeout: time.Second}
	pub := NewKafkaPublisher(w, signer, cfg, zerolog.Nop())
	sentAt := time.Unix(1760000000, 0)
	pub.now = func() time.Time { return sentAt }

	ev := testEvent()
	signer.EXPECT().Sign(ev.Payload, sentAt).Return("abc123")

	require.NoError(t, pub.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("user-1"), w.msgs[0].Key)
	assert.Equal(t, ev.Payload, w.msgs[0].Value)
	assert.Equal(t, domain.EventCheckoutCompleted, headerValue(w.msgs[0], HeaderEventType))
	assert.Equal(t, "abc123", headerValue(w.msgs[0], HeaderSignature))
}

func TestKafkaPublisher_BreakerOpensAfterFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	signer := mocks.NewMockSignatureService(ctrl)
	signer.EXPECT().Sign(gomock.Any(), gomock.Any()).Return("sig").AnyTimes()

	w := &fakeWriter{err: errors.New("connection refused")}
	cfg := config.KafkaConfig{BreakerMaxFailures: 2, BreakerOpenTimeout: time.Minute}
	pub := NewKafkaPublisher(w, signer, cfg, zerolog.Nop())

	for i := 0; i < 2; i++ {
		err := pub.Publish(context.Background(), testEvent())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBrokerUnavailable)
	}
	assert.Equal(t, "open", pub.State())
	assert.ErrorIs(t, pub.Ping(context.Background()), ErrBrokerUnavailable)

	err := pub.Publish(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestKafkaPublisher_HealthyWhileClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewKafkaPublisher(&fakeWriter{}, mocks.NewMockSignatureService(ctrl), config.KafkaConfig{}, zerolog.Nop())

	assert.Equal(t, "kafka", pub.Name())
	assert.NoError(t, pub.Ping(context.Background()))
}

func TestKafkaPublisher_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := &fakeWriter{}
	pub := NewKafkaPublisher(w, mocks.NewMockSignatureService(ctrl), config.KafkaConfig{}, zerolog.Nop())

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestNewWriter_SplitsBrokers(t *testing.T) {
	w := NewWriter(config.KafkaConfig{Brokers: []string{"k1:9092, k2:9092", " k3:9092"}, Topic: "t"})

	assert.Equal(t, "t", w.Topic)
	assert.Equal(t, "k1:9092,k2:9092,k3:9092", w.Addr.String())
}

func TestLogPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	assert.Contains(t, buf.String(), `"event_type":"checkout.completed"`)
	assert.Contains(t, buf.String(), `"payload":{"total":"40"}`)
}
