package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"bookload/internal/runner"
)

// KafkaSink publishes one message per submission result, keyed by user so a
// user's results stay ordered within a partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true // Must be true for SyncProducer
	cfg.Net.DialTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}
	return NewKafkaSinkWithProducer(producer, topic), nil
}

func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

type resultMessage struct {
	RunID string `json:"run_id"`
	runner.OperationResult
}

func (k *KafkaSink) Publish(runID string, results []runner.OperationResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(results))
	for _, res := range results {
		body, err := json.Marshal(resultMessage{RunID: runID, OperationResult: res})
		if err != nil {
			return err
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(strconv.Itoa(res.UserID)),
			Value: sarama.ByteEncoder(body),
		})
	}
	if err := k.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publishing %d results to %s: %w", len(msgs), k.topic, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
