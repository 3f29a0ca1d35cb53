package domain

import "time"

// Verification record kinds: password-reset OTPs and email confirmation
// tokens share one table, keyed (user_id, type).
const (
	VerificationOTP   = "otp"
	VerificationEmail = "email"
)

// UserVerification is a single-use code mailed to a user. ExpiresAt doubles
// as the DynamoDB TTL attribute, so stale rows age out on their own.
type UserVerification struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Type      string `json:"type" dynamodbav:"type"`
	Code      string `json:"code" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds
}

// Expired reports whether the code's validity window has passed. TTL
// deletion lags, so callers must still check.
func (v *UserVerification) Expired() bool {
	return v.ExpiresAt < time.Now().Unix()
}
