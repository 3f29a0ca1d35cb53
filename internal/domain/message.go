package domain

import "time"

// ChatMessage is a project-scoped chat entry. The realtime push payload
// carries only foreign keys; Sender is filled in by a secondary profile
// lookup on the receiving side.
type ChatMessage struct {
	MessageID string       `json:"id" dynamodbav:"message_id"`
	ProjectID string       `json:"project_id" dynamodbav:"project_id"`
	SenderID  string       `json:"sender_id" dynamodbav:"sender_id"`
	Body      string       `json:"body" dynamodbav:"body"`
	CreatedAt time.Time    `json:"created" dynamodbav:"created_at"`
	Sender    *UserProfile `json:"sender,omitempty" dynamodbav:"-"`
}
