package domain

import "time"

type User struct {
	UserID         string     `json:"id" dynamodbav:"user_id"`
	Email          string     `json:"email" dynamodbav:"email"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool       `json:"email_confirmed" dynamodbav:"email_confirmed"`
	AuthProvider   string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub      string     `json:"-"                       dynamodbav:"google_sub"`
	Enable         bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// SignUpRequest carries the credential pair plus the profile fields that the
// platform materialises into the public profile row at account creation.
type SignUpRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	FullName    string   `json:"full_name" validate:"required"`
	Institution string   `json:"institution"`
	Role        string   `json:"role" validate:"omitempty,oneof=research_lead contributor"`
	Bio         string   `json:"bio"`
	Skills      []string `json:"skills"`
}
