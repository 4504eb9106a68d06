package domain

import "time"

// ResetToken is the single outstanding password-reset secret for a user.
// PK: user_id. At most one live record per account; issuing a new token
// replaces the previous one. Only the bcrypt hash of the raw token is stored.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type ResetToken struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	TokenHash string    `json:"-" dynamodbav:"token_hash"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"`
}
