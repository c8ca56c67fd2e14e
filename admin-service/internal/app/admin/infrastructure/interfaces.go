package infrastructure

import "context"

// EventPublisher - абстракция публикации событий безопасности.
// Позволяет мокать Kafka в unit-тестах сервисов.
type EventPublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
