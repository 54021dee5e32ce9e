package domain

import "time"

// WebhookEvent is one incremental change event pushed by the upstream
// platform.
type WebhookEvent struct {
	Topic      string    `json:"topic" bson:"topic"`
	BusinessID string    `json:"business_id" bson:"business_id"`
	Shop       string    `json:"shop" bson:"shop"`
	Payload    []byte    `json:"payload" bson:"payload"`
	Verified   bool      `json:"verified" bson:"verified"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}
