package google

import (
	"context"
	"fmt"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

// Verify validates the Google ID token and returns the extracted identity.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.GoogleIdentity, error) {
	p, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	fullName, _ := p.Claims["name"].(string)
	return &domain.GoogleIdentity{
		Sub:           p.Subject,
		Email:         email,
		EmailVerified: emailVerified,
		FullName:      fullName,
	}, nil
}
