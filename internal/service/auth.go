package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kube-rca/diary/internal/db"
	"github.com/kube-rca/diary/internal/model"
	"github.com/kube-rca/diary/internal/security"
)

const maxUsernameLength = 64

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = security.ErrUnauthorized
	ErrStorage            = errors.New("storage failure")
)

// CredentialStore owns the account records.
type CredentialStore interface {
	// InsertUser must report a taken username as db.ErrUniqueViolation.
	InsertUser(ctx context.Context, cred *model.Credential) error
	FindByUsername(ctx context.Context, username string) (*model.Credential, error)
	FindByID(ctx context.Context, id string) (*model.Credential, error)
	CountUsers(ctx context.Context) (int64, error)
}

// SessionLedger counts issued tokens that have not yet expired.
type SessionLedger interface {
	RecordSession(ctx context.Context, session model.Session) error
	CountActiveSessions(ctx context.Context, now time.Time) (int64, error)
}

type TokenCodec interface {
	Issue(subject string) (string, *security.Claims, error)
	Verify(token string) (*security.Claims, error)
}

// AuthService registers and logs in users. It holds no state of its own
// beyond handles to its collaborators.
type AuthService struct {
	store    CredentialStore
	sessions SessionLedger
	hasher   security.PasswordHasher
	tokens   TokenCodec
	logger   *slog.Logger
	now      func() time.Time

	// digest compared against on unknown usernames so both login failure
	// paths pay for one bcrypt comparison
	dummyHash string
}

func NewAuthService(store CredentialStore, sessions SessionLedger, hasher security.PasswordHasher, tokens TokenCodec, logger *slog.Logger) (*AuthService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		store:     store,
		sessions:  sessions,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.With("component", "auth"),
		now:       time.Now,
		dummyHash: dummyHash,
	}, nil
}

// Register creates the account and returns a session for it. The insert is
// the only duplicate check: two concurrent registrations of one username
// are settled by the store's unique constraint.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.AuthResult, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	cred := &model.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.InsertUser(ctx, cred); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", cred.ID)
	return s.issue(ctx, cred)
}

// Login returns ErrInvalidCredentials for an unknown username and for a
// wrong password alike.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.AuthResult, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	cred, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	ok, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash unusable", "user_id", cred.ID, "error", err)
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, cred)
}

// Authenticate verifies a bearer token and confirms its subject still
// exists, so tokens of removed accounts stop working before they expire.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AuthUser, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	cred, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &model.AuthUser{
		ID:       cred.ID,
		Username: cred.Username,
	}, nil
}

func (s *AuthService) issue(ctx context.Context, cred *model.Credential) (*model.AuthResult, error) {
	token, claims, err := s.tokens.Issue(cred.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	// Session accounting only feeds /stats; losing a record must not fail a login.
	session := model.Session{
		ID:        claims.TokenID,
		UserID:    cred.ID,
		CreatedAt: claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}
	if err := s.sessions.RecordSession(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "failed to record session", "user_id", cred.ID, "error", err)
	}

	return &model.AuthResult{
		Token: token,
		User:  cred.View(),
	}, nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || len(username) > maxUsernameLength {
		return ErrInvalidInput
	}
	// Postgres TEXT cannot hold NUL, and control characters have no place in a login name.
	if !utf8.ValidString(username) || strings.IndexFunc(username, unicode.IsControl) >= 0 {
		return ErrInvalidInput
	}
	if password == "" {
		return ErrInvalidInput
	}
	return nil
}
