package domain

import "time"

// Roles a profile can hold. Research leads post projects and manage
// applications, contributors apply, admins moderate.
const (
	RoleResearchLead = "research_lead"
	RoleContributor  = "contributor"
	RoleAdmin        = "admin"
)

// UserProfile is the public profile row keyed by the owning user's id.
// It is provisioned by the platform when the account is created and is the
// server-held truth the client-side session store caches.
type UserProfile struct {
	UserID      string    `json:"id" dynamodbav:"user_id"`
	FullName    string    `json:"full_name" dynamodbav:"full_name"`
	Institution string    `json:"institution" dynamodbav:"institution"`
	Role        string    `json:"role" dynamodbav:"role"`
	Bio         string    `json:"bio" dynamodbav:"bio"`
	Skills      []string  `json:"skills" dynamodbav:"skills"`
	IsAnonymous bool      `json:"is_anonymous" dynamodbav:"is_anonymous"`
	PhotoKey    *string   `json:"photo_key,omitempty" dynamodbav:"photo_key"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

type UpdateProfileRequest struct {
	FullName    *string   `json:"full_name"`
	Institution *string   `json:"institution"`
	Bio         *string   `json:"bio"`
	Skills      *[]string `json:"skills"`
	IsAnonymous *bool     `json:"is_anonymous"`
	PhotoKey    *string   `json:"photo_key"`
}
