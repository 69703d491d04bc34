package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"meetroom/config"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	batchTimeout = 50 * time.Millisecond
	writeTimeout = 5 * time.Second
)

// Message is a keyed JSON payload. Messages sharing a key land on the same partition.
type Message struct {
	Key   string
	Value any
}

func (m Message) encode() (kafkaGo.Message, error) {
	value, err := json.Marshal(m.Value)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("failed to marshal message %q: %w", m.Key, err)
	}

	return kafkaGo.Message{Key: []byte(m.Key), Value: value}, nil
}

// Client publishes messages. Writers are created lazily per topic and reused until Close.
type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) error
	Close() error
}

type kafkaClientImpl struct {
	brokers   []string
	transport *kafkaGo.Transport

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
}

func New(cfg *config.Config) Client {
	transport := &kafkaGo.Transport{}

	if cfg.Kafka.SASL.Username != "" {
		transport.SASL = plain.Mechanism{
			Username: cfg.Kafka.SASL.Username,
			Password: cfg.Kafka.SASL.Password,
		}
	}

	log.Info().Strs("brokers", cfg.Kafka.Brokers).Bool("enabled", cfg.Kafka.Enable).Msg("Kafka client initialized")

	return &kafkaClientImpl{
		brokers:   cfg.Kafka.Brokers,
		transport: transport,
		writers:   map[string]*kafkaGo.Writer{},
	}
}

func (k *kafkaClientImpl) writer(topic string) *kafkaGo.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(k.brokers...),
		Topic:                  topic,
		Transport:              k.transport,
		Balancer:               &kafkaGo.Hash{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafkaGo.RequireOne,
		AllowAutoTopicCreation: true,
	}
	k.writers[topic] = w

	return w
}

func (k *kafkaClientImpl) SendMessages(ctx context.Context, topic string, messages ...Message) error {
	if topic == "" {
		return errors.New("kafka: topic is required")
	}

	if len(messages) == 0 {
		return nil
	}

	msgs := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		msg, err := message.encode()
		if err != nil {
			return err
		}

		msgs = append(msgs, msg)
	}

	if err := k.writer(topic).WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to send %d message(s) to %s: %w", len(msgs), topic, err)
	}

	log.Debug().Str("topic", topic).Int("count", len(msgs)).Msg("Sent messages to Kafka")

	return nil
}

func (k *kafkaClientImpl) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var errs []error

	for topic, w := range k.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer for %s: %w", topic, err))
		}

		delete(k.writers, topic)
	}

	return errors.Join(errs...)
}
