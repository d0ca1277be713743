package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationCacheDocument document lưu trong collection location_cache (persisted tier)
type LocationCacheDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Key          string             `bson:"key" json:"key"`                 // Cache key gốc
	Fingerprint  string             `bson:"fingerprint" json:"fingerprint"` // sha256 của key
	Data         []byte             `bson:"data" json:"data"`               // Payload đã encode
	StoredAt     time.Time          `bson:"stored_at" json:"stored_at"`
	ExpiresAt    *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	LastAccessed time.Time          `bson:"last_accessed" json:"last_accessed"`
	AccessCount  int                `bson:"access_count" json:"access_count"`
}

// NewLocationCacheDocument tạo mới document
func NewLocationCacheDocument(key, fingerprint string, data []byte, ttl time.Duration) *LocationCacheDocument {
	now := time.Now()
	doc := &LocationCacheDocument{
		Key:          key,
		Fingerprint:  fingerprint,
		Data:         data,
		StoredAt:     now,
		LastAccessed: now,
		AccessCount:  1,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		doc.ExpiresAt = &expires
	}
	return doc
}

// IsExpired kiểm tra document đã hết hạn chưa
func (d *LocationCacheDocument) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}
