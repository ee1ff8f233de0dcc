package queue

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

var _ TransitionQueue = (*KafkaQueue)(nil)

// KafkaQueue produces transition events keyed by root id, so the events of one root stay
// ordered within a partition.
type KafkaQueue struct {
	producer *kafka.Producer
	topic    string
	done     chan struct{}
}

func NewKafkaQueue(brokers, topic string) (*KafkaQueue, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	q := &KafkaQueue{
		producer: producer,
		topic:    topic,
		done:     make(chan struct{}),
	}
	go q.drain()

	return q, nil
}

// drain reports delivery failures; the producer blocks once its event channel is full.
func (q *KafkaQueue) drain() {
	defer close(q.done)
	for e := range q.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logrus.Errorf("failed to deliver transition event %s: %v", ev.Key, ev.TopicPartition.Error)
			}
		case kafka.Error:
			logrus.Errorf("kafka: %v", ev)
		}
	}
}

func (q *KafkaQueue) Publish(ctx context.Context, events ...TransitionEvent) error {
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return err
		}

		err = q.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &q.topic, Partition: kafka.PartitionAny},
			Key:            []byte(event.RootID),
			Value:          value,
		}, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

func (q *KafkaQueue) Close() error {
	if remaining := q.producer.Flush(5000); remaining > 0 {
		logrus.Warnf("%d transition events were not delivered", remaining)
	}
	q.producer.Close()
	<-q.done

	return nil
}
