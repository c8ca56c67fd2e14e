package repository

import (
	"context"
	"fmt"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type auditRepository struct {
	collection *mongo.Collection
}

// NewAuditRepository создает новый репозиторий журнала аудита
// Автоматически создает индексы по occurred_at и user_id
func NewAuditRepository(db *mongo.Database) AuditRepository {
	collection := db.Collection("security_events")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Индекс по occurred_at для выборки интервалов при агрегации
	occurredIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "occurred_at", Value: 1},
		},
		Options: options.Index().SetName("occurred_at_idx"),
	}

	_, err := collection.Indexes().CreateOne(ctx, occurredIndexModel)
	if err != nil {
		// Логируем ошибку, но не прерываем работу - индекс может уже существовать
		fmt.Printf("Warning: failed to create index on occurred_at: %v\n", err)
	}

	// Индекс по user_id для выборки истории пользователя
	userIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
		},
		Options: options.Index().SetName("user_id_idx"),
	}

	_, err = collection.Indexes().CreateOne(ctx, userIndexModel)
	if err != nil {
		fmt.Printf("Warning: failed to create index on user_id: %v\n", err)
	}

	return &auditRepository{
		collection: collection,
	}
}

// Insert сохраняет запись аудита в MongoDB
func (r *auditRepository) Insert(ctx context.Context, record *entity.AuditRecord) error {
	record.StoredAt = time.Now()

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid
	}

	return nil
}

// CountByTypeBetween считает события по типам в интервале [from, to)
// через aggregation pipeline с $match и $group
func (r *auditRepository) CountByTypeBetween(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"occurred_at": bson.M{
				"$gte": from,
				"$lt":  to,
			},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Type  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation results: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.Type] = res.Count
	}

	return counts, nil
}

// ListByUser возвращает последние записи аудита пользователя
// Использует индекс user_id_idx
func (r *auditRepository) ListByUser(ctx context.Context, userID int64, limit int64) ([]entity.AuditRecord, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []entity.AuditRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
