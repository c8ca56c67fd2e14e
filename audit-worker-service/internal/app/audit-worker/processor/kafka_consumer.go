package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"
	"orchardfleet/audit-worker-service/internal/app/audit-worker/service"
	"orchardfleet/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer обрабатывает события из Kafka топика security_events
type KafkaConsumer struct {
	reader   *kafka.Reader
	groupID  string
	auditSvc service.AuditServiceInterface
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewKafkaConsumer создает новый Kafka consumer
func NewKafkaConsumer(
	brokers []string,
	topic string,
	groupID string,
	minBytes int,
	maxBytes int,
	auditSvc service.AuditServiceInterface,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		StartOffset: kafka.FirstOffset, // Журнал аудита не должен терять события
		// Настройки для автоматического коммита offset
		CommitInterval: time.Second,
		// Таймауты
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return &KafkaConsumer{
		reader:   reader,
		groupID:  groupID,
		auditSvc: auditSvc,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	log.Println("Starting Kafka consumer...")
	go c.consume(ctx)
}

// Stop останавливает consumer
func (c *KafkaConsumer) Stop() {
	log.Println("Stopping Kafka consumer...")
	close(c.stopChan)
	<-c.doneChan
	c.reader.Close()
	log.Println("Kafka consumer stopped")
}

// consume читает и обрабатывает сообщения из Kafka
func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
			readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			message, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}

				// Логируем ошибку и продолжаем
				log.Printf("Error fetching message: %v", err)
				time.Sleep(time.Second)
				continue
			}

			if err := c.processMessage(ctx, message); err != nil {
				log.Printf("Error processing message: %v", err)
				// Не коммитим offset при ошибке - сообщение будет повторно обработано
			} else {
				if err := c.reader.CommitMessages(ctx, message); err != nil {
					log.Printf("Error committing message: %v", err)
				}
			}
		}
	}
}

// processMessage обрабатывает одно сообщение из Kafka
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	start := time.Now()

	var event entity.SecurityEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		metrics.RecordKafkaError("audit-worker", message.Topic, "consume")
		return fmt.Errorf("failed to unmarshal security event: %w", err)
	}

	log.Printf("Received %s event for user %d (offset: %d, partition: %d)",
		event.Type, event.UserID, message.Offset, message.Partition)

	if err := c.auditSvc.ProcessEvent(ctx, &event); err != nil {
		metrics.RecordKafkaError("audit-worker", message.Topic, "consume")
		return fmt.Errorf("failed to process security event: %w", err)
	}

	metrics.RecordKafkaMessageConsumed("audit-worker", message.Topic, c.groupID, time.Since(start))

	return nil
}

// GetStats возвращает статистику consumer
func (c *KafkaConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
