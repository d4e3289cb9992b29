package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kube-rca/diary/internal/db"
	"github.com/kube-rca/diary/internal/model"
	"github.com/kube-rca/diary/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	mu        sync.Mutex
	byName    map[string]*model.Credential
	insertErr error
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byName: map[string]*model.Credential{}}
}

func (f *fakeStore) InsertUser(ctx context.Context, cred *model.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.byName[cred.Username]; ok {
		return db.ErrUniqueViolation
	}
	copied := *cred
	f.byName[cred.Username] = &copied
	return nil
}

func (f *fakeStore) FindByUsername(ctx context.Context, username string) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	cred, ok := f.byName[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cred := range f.byName {
		if cred.ID == id {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CountUsers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byName)), nil
}

func (f *fakeStore) remove(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byName, username)
}

type fakeLedger struct {
	mu       sync.Mutex
	sessions []model.Session
	err      error
}

func (f *fakeLedger) RecordSession(ctx context.Context, session model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeLedger) CountActiveSessions(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, s := range f.sessions {
		if s.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func newTestAuthService(t *testing.T, store CredentialStore, ledger SessionLedger) (*AuthService, *security.TokenCodec) {
	t.Helper()
	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := security.NewTokenCodec("service-test-secret", security.DefaultTokenTTL)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewAuthService(store, ledger, hasher, codec, logger)
	require.NoError(t, err)
	return svc, codec
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	ledger := &fakeLedger{}
	svc, codec := newTestAuthService(t, newFakeStore(), ledger)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", registered.User.Username)
	assert.NotEmpty(t, registered.User.ID)

	loggedIn, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, registered.Token, loggedIn.Token)
	assert.Equal(t, registered.User, loggedIn.User)

	for _, token := range []string{registered.Token, loggedIn.Token} {
		claims, err := codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, claims.Subject)
	}

	assert.Len(t, ledger.sessions, 2)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore(), &fakeLedger{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other")
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestAuthService_RegisterUsernameIsCaseSensitive(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore(), &fakeLedger{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Alice", "s3cret")
	require.NoError(t, err)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore(), &fakeLedger{})
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"blank username", "   ", "s3cret", ErrInvalidInput},
		{"long username", strings.Repeat("a", maxUsernameLength+1), "s3cret", ErrInvalidInput},
		{"nul in username", "ali\x00ce", "s3cret", ErrInvalidInput},
		{"control character in username", "alice\n", "s3cret", ErrInvalidInput},
		{"invalid utf-8 username", "al\xffice", "s3cret", ErrInvalidInput},
		{"empty password", "alice", "", ErrInvalidInput},
		{"password too long", "alice", string(make([]byte, 73)), security.ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthService_RegisterStorageError(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	svc, _ := newTestAuthService(t, store, &fakeLedger{})

	_, err := svc.Register(context.Background(), "alice", "s3cret")
	require.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAuthService_RegisterSurvivesLedgerFailure(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore(), &fakeLedger{err: errors.New("redis down")})

	result, err := svc.Register(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore(), &fakeLedger{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "bob", "s3cret")
	_, wrongErr := svc.Login(ctx, "alice", "wrong")
	_, blankErr := svc.Login(ctx, "", "")

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.ErrorIs(t, blankErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_LoginStorageError(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("connection reset")
	svc, _ := newTestAuthService(t, store, &fakeLedger{})

	_, err := svc.Login(context.Background(), "alice", "s3cret")
	require.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginCorruptHash(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.InsertUser(context.Background(), &model.Credential{
		ID: "id-1", Username: "alice", PasswordHash: "not-a-digest", CreatedAt: time.Now(),
	}))
	svc, _ := newTestAuthService(t, store, &fakeLedger{})

	_, err := svc.Login(context.Background(), "alice", "s3cret")
	require.ErrorIs(t, err, security.ErrHashing)
}

func TestAuthService_Authenticate(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store, &fakeLedger{})
	ctx := context.Background()

	result, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnauthorized)

	store.remove("alice")
	_, err = svc.Authenticate(ctx, result.Token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_ConcurrentRegisterSQLite(t *testing.T) {
	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	svc, _ := newTestAuthService(t, store, store)

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), "alice", "s3cret")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	}
	assert.Equal(t, 1, succeeded)

	count, err := store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = svc.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
}
