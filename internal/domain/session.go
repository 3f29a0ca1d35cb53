package domain

import "time"

// Session is replaced wholesale on every auth event, never mutated in place.
type Session struct {
	SessionID        string       `json:"id" dynamodbav:"session_id"`
	UserID           string       `json:"user_id" dynamodbav:"user_id"`
	Enable           bool         `json:"enable" dynamodbav:"enable"`
	RefreshToken     string       `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64        `json:"-" dynamodbav:"refresh_expires_at"` // Unix seconds
	CreatedAt        time.Time    `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time    `json:"updated" dynamodbav:"updated_at"`
	User             *User        `json:"user,omitempty" dynamodbav:"-"`
	Profile          *UserProfile `json:"profile,omitempty" dynamodbav:"-"`
}
