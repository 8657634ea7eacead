package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Типы событий подписки
const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionExpired   = "subscription.expired"
)

// partitionKey все события одной записи идут в одну партицию
const partitionKey = "subscription"

// SubscriptionEvent событие для Kafka
type SubscriptionEvent struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Source       string              `json:"source,omitempty"`
	Subscription domain.Subscription `json:"subscription"`
	Timestamp    time.Time           `json:"timestamp"`
}

// EventPublisher интерфейс для отправки событий подписки
type EventPublisher interface {
	PublishCreated(ctx context.Context, sub domain.Subscription) error
	PublishCancelled(ctx context.Context) error
	// PublishExpired prior запись до очистки, source кто инициировал
	PublishExpired(ctx context.Context, prior domain.Subscription, source string) error
	Close() error
}

type kafkaEventPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaEventPublisher создает издателя поверх синхронного продюсера
func NewKafkaEventPublisher(producer sarama.SyncProducer, topic string, log *logger.Logger) EventPublisher {
	return &kafkaEventPublisher{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// NewProducer подключается к брокерам из cfg
func NewProducer(cfg *Config, log *logger.Logger) (EventPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create producer: %w", err)
	}
	log.Infow("Kafka producer initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewKafkaEventPublisher(producer, cfg.Topic, log), nil
}

// PublishCreated публикует событие о создании подписки
func (p *kafkaEventPublisher) PublishCreated(ctx context.Context, sub domain.Subscription) error {
	return p.publish(ctx, SubscriptionEvent{Type: EventSubscriptionCreated, Subscription: sub})
}

// PublishCancelled публикует событие об отмене
func (p *kafkaEventPublisher) PublishCancelled(ctx context.Context) error {
	return p.publish(ctx, SubscriptionEvent{Type: EventSubscriptionCancelled, Subscription: domain.EmptySubscription()})
}

// PublishExpired публикует событие об истечении
func (p *kafkaEventPublisher) PublishExpired(ctx context.Context, prior domain.Subscription, source string) error {
	return p.publish(ctx, SubscriptionEvent{Type: EventSubscriptionExpired, Source: source, Subscription: prior})
}

func (p *kafkaEventPublisher) publish(ctx context.Context, event SubscriptionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(partitionKey),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
		},
		Timestamp: event.Timestamp,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish subscription event: %w", err)
	}

	p.log.Debugw("Published subscription event", "type", event.Type, "partition", partition, "offset", offset)
	return nil
}

// Close закрывает продюсер
func (p *kafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher используется, когда брокеры не настроены
type NopPublisher struct{}

func (NopPublisher) PublishCreated(context.Context, domain.Subscription) error {
	return nil
}

func (NopPublisher) PublishCancelled(context.Context) error {
	return nil
}

func (NopPublisher) PublishExpired(context.Context, domain.Subscription, string) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}
