package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-wallet-service/config"
	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// Header keys set on every published message.
const (
	HeaderEventType = "event_type"
	HeaderSignature = "X-Signature"
)

// ErrBrokerUnavailable is returned while the circuit breaker is open.
var ErrBrokerUnavailable = errors.New("event broker unavailable")

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a kafka writer from config. Messages are hashed by key so
// all events of one user land on the same partition.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher implements ports.EventPublisher on top of kafka-go, guarded by a circuit breaker.
type KafkaPublisher struct {
	writer  MessageWriter
	signer  ports.SignatureService
	now     func() time.Time
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing through w.
func NewKafkaPublisher(w MessageWriter, signer ports.SignatureService, cfg config.KafkaConfig, log zerolog.Logger) *KafkaPublisher {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	l := log.With().Str("component", "kafka_publisher").Str("topic", cfg.Topic).Logger()

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "kafka",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &KafkaPublisher{
		writer:  w,
		signer:  signer,
		now:     time.Now,
		timeout: cfg.WriteTimeout,
		breaker: breaker,
		log:     l,
	}
}

// Publish writes one event, signed at publish time.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderSignature, Value: []byte(p.signer.Sign(event.Payload, p.now()))},
		},
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		writeCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			writeCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return struct{}{}, p.writer.WriteMessages(writeCtx, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
		}
		return fmt.Errorf("kafka write %s: %w", event.EventType, err)
	}
	return nil
}

// State reports the breaker state.
func (p *KafkaPublisher) State() string {
	return p.breaker.State().String()
}

// Ping implements ports.HealthChecker. An open breaker counts as unhealthy.
func (p *KafkaPublisher) Ping(_ context.Context) error {
	if p.breaker.State() == gobreaker.StateOpen {
		return ErrBrokerUnavailable
	}
	return nil
}

// Name implements ports.HealthChecker.
func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
