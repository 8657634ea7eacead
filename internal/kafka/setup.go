package kafka

import (
	"errors"
	"fmt"

	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/IBM/sarama"
)

// EnsureTopic создает топик событий подписки, если его нет
func EnsureTopic(cfg *Config, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka broker address is empty")
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return fmt.Errorf("kafka: failed to create cluster admin: %w", err)
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("kafka: failed to list topics: %w", err)
	}
	if _, ok := topics[cfg.Topic]; ok {
		log.Debugw("Kafka topic already exists", "topic", cfg.Topic)
		return nil
	}

	// Одна партиция: события единственной записи должны идти по порядку
	err = admin.CreateTopic(cfg.Topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, false)
	if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return fmt.Errorf("kafka: failed to create topic %s: %w", cfg.Topic, err)
	}

	log.Infow("Kafka topic created", "topic", cfg.Topic)
	return nil
}
