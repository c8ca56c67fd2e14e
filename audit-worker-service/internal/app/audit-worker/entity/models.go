package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SecurityEvent - событие безопасности из Kafka топика security_events.
// Формат совпадает с тем, что публикует admin-service.
type SecurityEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventLoginSuccess     = "login_success"
	EventLoginFailed      = "login_failed"
	EventLogout           = "logout"
	EventSignatureReject  = "signature_reject"
	EventNonceReplay      = "nonce_replay"
	EventDeviceMismatch   = "device_mismatch"
	EventDeviceReset      = "device_reset"
	EventPermissionChange = "permission_change"
)

// AuditRecord - документ аудита в MongoDB
type AuditRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type       string             `bson:"type" json:"type"`
	UserID     int64              `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Username   string             `bson:"username,omitempty" json:"username,omitempty"`
	Detail     string             `bson:"detail,omitempty" json:"detail,omitempty"`
	OccurredAt time.Time          `bson:"occurred_at" json:"occurred_at"`
	StoredAt   time.Time          `bson:"stored_at" json:"stored_at"`
}

// DailyStat - суточный счетчик событий безопасности в PostgreSQL.
// Строка уникальна по паре (day, event_type), повторная агрегация
// перезаписывает счетчик.
type DailyStat struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Day       time.Time `json:"day" gorm:"type:date;not null;uniqueIndex:idx_day_event_type"`
	EventType string    `json:"event_type" gorm:"type:varchar(50);not null;uniqueIndex:idx_day_event_type"`
	Count     int64     `json:"count" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DailyStat) TableName() string {
	return "security_daily_stats"
}
