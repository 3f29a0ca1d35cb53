package domain

// GoogleIdentity holds the verified claims extracted from a Google ID token.
type GoogleIdentity struct {
	Sub           string
	Email         string
	EmailVerified bool
	FullName      string
}
