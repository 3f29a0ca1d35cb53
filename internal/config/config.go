package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables
	S3BucketName string

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	GoogleClientID string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion    string
	PushTopicARN string // empty disables mobile push fan-out

	AllowedOrigins []string // CORS allowed origins

	// AllowedEmailDomains restricts sign-up to institutional addresses.
	// Empty list or "*" allows any domain.
	AllowedEmailDomains []string

	// SessionRestoreTimeout bounds how long the client session store stays
	// in loading=true when the initial session check never answers.
	SessionRestoreTimeout time.Duration

	NotificationPageSize int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Sessions      string
	Profiles      string
	Notifications string
	Projects      string
	Applications  string
	Milestones    string
	Messages      string
	Files         string
	Verifications string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:      getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Profiles:      getEnv("DYNAMO_TABLE_PROFILES", "profiles"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Projects:      getEnv("DYNAMO_TABLE_PROJECTS", "projects"),
			Applications:  getEnv("DYNAMO_TABLE_APPLICATIONS", "project_applications"),
			Milestones:    getEnv("DYNAMO_TABLE_MILESTONES", "milestones"),
			Messages:      getEnv("DYNAMO_TABLE_MESSAGES", "chat_messages"),
			Files:         getEnv("DYNAMO_TABLE_FILES", "files"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "user_verifications"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "researchcollab-files"),

		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@researchcollab.edu"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		PushTopicARN: getEnv("SNS_PUSH_TOPIC_ARN", ""),

		AllowedOrigins:      strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AllowedEmailDomains: splitDomains(getEnv("ALLOWED_EMAIL_DOMAINS", "")),

		SessionRestoreTimeout: time.Duration(getEnvInt("SESSION_RESTORE_TIMEOUT_MS", 5000)) * time.Millisecond,
		NotificationPageSize:  getEnvInt("NOTIFICATION_PAGE_SIZE", 10),
	}
}

func splitDomains(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
