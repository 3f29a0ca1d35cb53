package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/pkg/id"
	pkgtoken "github.com/Eldan-star/ResearchCollab/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// Service is the platform's auth collaborator: credential lifecycle, session
// minting, profile provisioning, and the auth event bus the client-side
// session store subscribes to.
type Service interface {
	SignUp(ctx context.Context, req domain.SignUpRequest) (*SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error)
	SignInWithGoogle(ctx context.Context, idToken string) (*SignInResult, error)
	SignOut(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	RestoreSession(ctx context.Context, sessionID string)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
	ResetPasswordForEmail(ctx context.Context, email string) error
	ChangePasswordWithOTP(ctx context.Context, email, otp, newPassword string) error
	ConfirmEmail(ctx context.Context, userID, token string) error
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error)
	Subscribe(fn EventHandler) func()
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type profileStore interface {
	Put(ctx context.Context, p *domain.UserProfile) error
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID, verType string) (*domain.UserVerification, error)
	Delete(ctx context.Context, userID, verType string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type jwtSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*domain.GoogleIdentity, error)
}

type SignUpResult struct {
	User *domain.User
	// ConfirmationRequired is true when the account was created but no
	// session exists yet because the email is unconfirmed.
	ConfirmationRequired bool
}

type SignInResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type ServiceDeps struct {
	UserRepo         userStore
	ProfileRepo      profileStore
	SessionRepo      sessionStore
	VerificationRepo verificationStore
	Mailer           mailer
	JWTProvider      jwtSigner
	GoogleVerifier   googleVerifier
	RefreshTokenDur  time.Duration
	// AllowedEmailDomains restricts sign-up; empty or containing "*" allows
	// every domain. The client-side session store performs the same check up
	// front, this one is the enforcement.
	AllowedEmailDomains []string
}

type service struct {
	users          userStore
	profiles       profileStore
	sessions       sessionStore
	verifications  verificationStore
	mailer         mailer
	jwt            jwtSigner
	google         googleVerifier
	refreshDur     time.Duration
	allowedDomains []string

	subMu   sync.Mutex
	subs    map[int]EventHandler
	nextSub int
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:          deps.UserRepo,
		profiles:       deps.ProfileRepo,
		sessions:       deps.SessionRepo,
		verifications:  deps.VerificationRepo,
		mailer:         deps.Mailer,
		jwt:            deps.JWTProvider,
		google:         deps.GoogleVerifier,
		refreshDur:     deps.RefreshTokenDur,
		allowedDomains: deps.AllowedEmailDomains,
		subs:           make(map[int]EventHandler),
	}
}

// Subscribe registers an event handler and returns its unsubscribe func.
// Handlers run synchronously in emission order.
func (s *service) Subscribe(fn EventHandler) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	n := s.nextSub
	s.nextSub++
	s.subs[n] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, n)
	}
}

func (s *service) emit(kind EventKind, sess *domain.Session) {
	s.subMu.Lock()
	handlers := make([]EventHandler, 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.subMu.Unlock()
	ev := AuthEvent{Kind: kind, Session: sess}
	for _, fn := range handlers {
		fn(ev)
	}
}

// SignUp creates the credential record and materialises the public profile
// row from the request's profile fields, then sends the confirmation token.
// No session is minted until the email is confirmed.
func (s *service) SignUp(ctx context.Context, req domain.SignUpRequest) (*SignUpResult, error) {
	if !domainAllowed(req.Email, s.allowedDomains) {
		return nil, fmt.Errorf("email domain not in allow-list: %w", domain.ErrDomainNotAllowed)
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = domain.RoleContributor
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		AuthProvider: "local",
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	p := &domain.UserProfile{
		UserID:      u.UserID,
		FullName:    req.FullName,
		Institution: req.Institution,
		Role:        role,
		Bio:         req.Bio,
		Skills:      req.Skills,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.profiles.Put(ctx, p); err != nil {
		return nil, err
	}
	if err := s.sendConfirmationToken(ctx, u); err != nil {
		slog.Warn("failed to send confirmation email", "user_id", u.UserID, "err", err)
	}
	return &SignUpResult{User: u, ConfirmationRequired: true}, nil
}

func (s *service) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if !u.EmailConfirmed {
		return nil, fmt.Errorf("email not confirmed: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
	}
	return s.mintSession(ctx, u, EventSignedIn)
}

func (s *service) SignInWithGoogle(ctx context.Context, idToken string) (*SignInResult, error) {
	if s.google == nil {
		return nil, fmt.Errorf("google sign-in not configured: %w", domain.ErrBadRequest)
	}
	p, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !p.EmailVerified {
		return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.GetByGoogleSub(ctx, p.Sub)
	if err != nil {
		// First Google sign-in: provision user and profile.
		now := time.Now().UTC()
		u = &domain.User{
			UserID:         id.New(),
			Email:          p.Email,
			EmailConfirmed: true,
			AuthProvider:   "google",
			GoogleSub:      p.Sub,
			Enable:         true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.users.Put(ctx, u); err != nil {
			return nil, err
		}
		prof := &domain.UserProfile{
			UserID:    u.UserID,
			FullName:  p.FullName,
			Role:      domain.RoleContributor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.profiles.Put(ctx, prof); err != nil {
			return nil, err
		}
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.mintSession(ctx, u, EventSignedIn)
}

func (s *service) mintSession(ctx context.Context, u *domain.User, kind EventKind) (*SignInResult, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	prof, err := s.profiles.Get(ctx, u.UserID)
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	bearer, err := s.jwt.Sign(u.UserID, prof.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	sess.Profile = prof
	s.emit(kind, sess)
	return &SignInResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

// SignOut disables the session row and emits the signed-out event. The event
// is emitted even when the row update fails so local observers always see the
// termination.
func (s *service) SignOut(ctx context.Context, sessionID string) error {
	err := s.sessions.Update(ctx, sessionID, map[string]interface{}{"enable": false})
	s.emit(EventSignedOut, nil)
	return err
}

func (s *service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

// RestoreSession checks a previously stored session id at client startup and
// emits the initial-session event with the restored session, or nil when the
// id is empty or no longer valid.
func (s *service) RestoreSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		s.emit(EventInitialSession, nil)
		return
	}
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		s.emit(EventInitialSession, nil)
		return
	}
	s.emit(EventInitialSession, sess)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().Add(s.refreshDur).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}
	prof, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		return "", "", err
	}
	bearer, err := s.jwt.Sign(sess.UserID, prof.Role, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	sess.Profile = prof
	s.emit(EventTokenRefreshed, sess)
	return bearer, newToken, nil
}

// ResetPasswordForEmail mails a recovery OTP and emits the password-recovery
// event. An unknown email is reported as not found; callers decide whether to
// mask that from end users.
func (s *service) ResetPasswordForEmail(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	otp, err := numericOTP()
	if err != nil {
		return err
	}
	v := &domain.UserVerification{
		UserID:    u.UserID,
		Type:      domain.VerificationOTP,
		Code:      otp,
		ExpiresAt: time.Now().Add(15 * time.Minute).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}
	if err := s.mailer.SendEmail(u.Email, "Password Recovery OTP", "Your OTP: "+otp); err != nil {
		return err
	}
	s.emit(EventPasswordRecovery, nil)
	return nil
}

func (s *service) ChangePasswordWithOTP(ctx context.Context, email, otp, newPassword string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	v, err := s.verifications.Get(ctx, u.UserID, domain.VerificationOTP)
	if err != nil {
		return fmt.Errorf("OTP not found: %w", domain.ErrNotFound)
	}
	if v.Code != otp {
		return fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	if v.Expired() {
		return fmt.Errorf("OTP expired: %w", domain.ErrUnauthorized)
	}
	if err := s.verifications.Delete(ctx, u.UserID, domain.VerificationOTP); err != nil {
		slog.Warn("failed to delete OTP verification record", "user_id", u.UserID, "err", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)})
}

func (s *service) ConfirmEmail(ctx context.Context, userID, token string) error {
	v, err := s.verifications.Get(ctx, userID, domain.VerificationEmail)
	if err != nil {
		return fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	if v.Code != token {
		return fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	if v.Expired() {
		return fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
	}
	if err := s.verifications.Delete(ctx, userID, domain.VerificationEmail); err != nil {
		slog.Warn("failed to delete email verification record", "user_id", userID, "err", err)
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"email_confirmed": true})
}

func (s *service) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.profiles.Get(ctx, userID)
}

// UpdateProfile applies a partial update and returns the authoritative
// re-read row. On failure nothing is written and nothing is returned.
func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.UserProfile, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Institution != nil {
		updates["institution"] = *req.Institution
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Skills != nil {
		updates["skills"] = *req.Skills
	}
	if req.IsAnonymous != nil {
		updates["is_anonymous"] = *req.IsAnonymous
	}
	if req.PhotoKey != nil {
		updates["photo_key"] = *req.PhotoKey
	}
	if len(updates) == 0 {
		return s.profiles.Get(ctx, userID)
	}
	if err := s.profiles.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, userID)
}

func (s *service) sendConfirmationToken(ctx context.Context, u *domain.User) error {
	token, err := pkgtoken.NewEmailToken()
	if err != nil {
		return err
	}
	v := &domain.UserVerification{
		UserID:    u.UserID,
		Type:      domain.VerificationEmail,
		Code:      token,
		ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}
	return s.mailer.SendEmail(u.Email, "Confirm your email", "Token: "+token)
}

func domainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	d := strings.ToLower(email[at+1:])
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, d) {
			return true
		}
	}
	return false
}

func numericOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(999999))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
