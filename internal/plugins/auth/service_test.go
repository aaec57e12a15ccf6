package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/userservice/internal/apperror"
	"github.com/keyxmakerx/userservice/internal/kvstore"
	"github.com/keyxmakerx/userservice/internal/plugins/sessions"
)

// --- Mocks ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*Account, error)
	findByIDFn       func(ctx context.Context, id int64) (*Account, error)
	createFn         func(ctx context.Context, account *Account) (int64, error)
	updatePasswordFn func(ctx context.Context, id int64, hash string) (int64, error)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*Account, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewUserNotFound()
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*Account, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewUserNotFound()
}

func (m *mockUserRepo) Create(ctx context.Context, account *Account) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	account.ID = 1
	return 1, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) (int64, error) {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return 1, nil
}

func (m *mockUserRepo) Ping(context.Context) error { return nil }

// memRepo is an in-memory UserRepository with a unique username index.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Account
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[int64]*Account)}
}

func (r *memRepo) FindByUsername(_ context.Context, username string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperror.NewUserNotFound()
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, apperror.NewUserNotFound()
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, account *Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == account.Username {
			return 0, apperror.NewDuplicateUsername()
		}
	}
	r.nextID++
	account.ID = r.nextID
	cp := *account
	r.byID[cp.ID] = &cp
	return 1, nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id int64, hash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return 0, nil
	}
	a.PasswordHash = hash
	return 1, nil
}

func (r *memRepo) Ping(context.Context) error { return nil }

func (r *memRepo) get(t *testing.T, username string) *Account {
	t.Helper()
	a, err := r.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("account %q not found: %v", username, err)
	}
	return a
}

// mockSessions implements sessions.Manager for testing.
type mockSessions struct {
	issueFn func(ctx context.Context, snap sessions.Snapshot, ttl time.Duration) (string, error)
}

func (m *mockSessions) Issue(ctx context.Context, snap sessions.Snapshot, ttl time.Duration) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, snap, ttl)
	}
	return "token", nil
}

func (m *mockSessions) Validate(context.Context, string) (*sessions.Session, error) {
	return nil, apperror.NewSessionInvalid()
}

// countingStore wraps a kvstore.Store and counts Get calls.
type countingStore struct {
	kvstore.Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.Store.Get(ctx, key)
}

// failingStore is a kvstore.Store whose every call fails.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (failingStore) Ping(context.Context) error { return errors.New("cache down") }

// --- Test Helpers ---

const testSessionTTL = 30 * time.Minute

// newRedisStore returns a miniredis-backed store and the miniredis handle.
func newRedisStore(t *testing.T) (kvstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kvstore.NewRedisStore(client), mr
}

// newTestService wires a service with light argon2 params. sm and cache may
// be nil.
func newTestService(repo UserRepository, sm sessions.Manager, cache kvstore.Store) *authService {
	if sm == nil {
		sm = &mockSessions{}
	}
	return NewService(repo, sm, NewArgon2idHasher(testArgon2Params), cache, ServiceConfig{
		SessionTTL: testSessionTTL,
		ProfileTTL: time.Minute,
	}).(*authService)
}

// newIntegratedService wires the in-memory repo to a real session manager on
// miniredis.
func newIntegratedService(t *testing.T) (*authService, *memRepo, sessions.Manager, *miniredis.Miniredis) {
	t.Helper()
	store, mr := newRedisStore(t)
	repo := newMemRepo()
	sm := sessions.NewManager(store)
	return newTestService(repo, sm, store), repo, sm, mr
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected code %s, got %s (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func register(t *testing.T, svc Service, username, password string) *Account {
	t.Helper()
	account, err := svc.Register(context.Background(), RegisterInput{Username: username, Password: password})
	if err != nil {
		t.Fatalf("register %q: %v", username, err)
	}
	return account
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, account *Account) (int64, error) {
			if account.Username != "alice" {
				t.Errorf("expected username alice, got %q", account.Username)
			}
			if account.Salt == "" {
				t.Error("expected salt to be set")
			}
			if account.PasswordHash == "" || account.PasswordHash == "password1" {
				t.Errorf("expected a digest, got %q", account.PasswordHash)
			}
			account.ID = 9
			return 1, nil
		},
	}

	svc := newTestService(repo, nil, nil)
	account, err := svc.Register(context.Background(), RegisterInput{Username: "  alice ", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != 9 {
		t.Errorf("expected id 9, got %d", account.ID)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	created := false
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*Account, error) {
			return &Account{ID: 1, Username: username}, nil
		},
		createFn: func(ctx context.Context, account *Account) (int64, error) {
			created = true
			return 1, nil
		},
	}

	_, err := newTestService(repo, nil, nil).Register(context.Background(), RegisterInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodeDuplicateUsername)
	if created {
		t.Error("expected no insert for a taken username")
	}
}

func TestRegister_RacingInsertIsDuplicate(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, account *Account) (int64, error) {
			return 0, apperror.NewDuplicateUsername()
		},
	}

	_, err := newTestService(repo, nil, nil).Register(context.Background(), RegisterInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodeDuplicateUsername)
}

func TestRegister_LookupError(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*Account, error) {
			return nil, errors.New("db down")
		},
	}

	_, err := newTestService(repo, nil, nil).Register(context.Background(), RegisterInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodeFail)
}

func TestRegister_NoRowPersisted(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, account *Account) (int64, error) {
			return 0, nil
		},
	}

	_, err := newTestService(repo, nil, nil).Register(context.Background(), RegisterInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodeFail)
}

func TestRegister_TwiceYieldsDuplicate(t *testing.T) {
	svc, _, _, _ := newIntegratedService(t)

	register(t, svc, "bob", "password1")
	_, err := svc.Register(context.Background(), RegisterInput{Username: "bob", Password: "password2"})
	assertAppError(t, err, apperror.CodeDuplicateUsername)
}

func TestRegister_DistinctSalts(t *testing.T) {
	svc, repo, _, _ := newIntegratedService(t)

	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		name := "user" + string(rune('a'+i))
		register(t, svc, name, "password1")
		salt := repo.get(t, name).Salt
		if seen[salt] {
			t.Fatalf("salt reused: %s", salt)
		}
		seen[salt] = true
	}
}

func TestRegister_StoredHashIsNeverPlaintext(t *testing.T) {
	hashers := map[string]PasswordHasher{
		"argon2id": NewArgon2idHasher(testArgon2Params),
		"md5":      LegacyMD5Hasher{},
	}

	for name, hasher := range hashers {
		t.Run(name, func(t *testing.T) {
			repo := newMemRepo()
			svc := NewService(repo, &mockSessions{}, hasher, nil, ServiceConfig{SessionTTL: testSessionTTL})

			for i, pw := range plaintextSamples {
				username := "user" + string(rune('a'+i))
				register(t, svc, username, pw)

				stored := repo.get(t, username)
				if stored.PasswordHash == pw {
					t.Fatalf("stored hash equals plaintext %q", pw)
				}
				if stored.PasswordHash == pw+stored.Salt || strings.Contains(stored.PasswordHash, pw) {
					t.Errorf("stored hash %q leaks plaintext %q", stored.PasswordHash, pw)
				}
				if !hasher.Verify(pw, stored.Salt, stored.PasswordHash) {
					t.Errorf("stored hash for %q does not verify", pw)
				}
			}
		})
	}
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	svc, _, _, _ := newIntegratedService(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), RegisterInput{Username: "carol", Password: "password1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		assertAppError(t, err, apperror.CodeDuplicateUsername)
	}
	if successes != 1 {
		t.Errorf("expected exactly one successful registration, got %d", successes)
	}
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	svc, _, sm, _ := newIntegratedService(t)
	account := register(t, svc, "alice", "password1")

	result, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if result.Username != "alice" {
		t.Errorf("expected username alice, got %q", result.Username)
	}

	session, err := sm.Validate(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("expected issued token to validate: %v", err)
	}
	if session.UserID != account.ID || session.Username != "alice" || session.Salt != account.Salt {
		t.Errorf("unexpected session snapshot %+v", session.Snapshot)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil, nil)

	_, err := svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "password1"})
	assertAppError(t, err, apperror.CodeUserNotFound)
}

func TestLogin_PasswordMismatch(t *testing.T) {
	svc, _, _, _ := newIntegratedService(t)
	register(t, svc, "alice", "password1")

	_, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password2"})
	assertAppError(t, err, apperror.CodePasswordMismatch)
}

func TestLogin_PassesSnapshotAndTTL(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params)
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*Account, error) {
			return &Account{ID: 4, Username: "alice", Salt: "s", PasswordHash: hasher.Hash("password1", "s")}, nil
		},
	}
	sm := &mockSessions{
		issueFn: func(ctx context.Context, snap sessions.Snapshot, ttl time.Duration) (string, error) {
			if snap != (sessions.Snapshot{UserID: 4, Username: "alice", Salt: "s"}) {
				t.Errorf("unexpected snapshot %+v", snap)
			}
			if ttl != testSessionTTL {
				t.Errorf("expected ttl %s, got %s", testSessionTTL, ttl)
			}
			return "tok", nil
		},
	}

	result, err := newTestService(repo, sm, nil).Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token != "tok" {
		t.Errorf("expected token tok, got %q", result.Token)
	}
}

func TestLogin_SessionStoreError(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params)
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*Account, error) {
			return &Account{ID: 4, Username: "alice", Salt: "s", PasswordHash: hasher.Hash("password1", "s")}, nil
		},
	}
	sm := &mockSessions{
		issueFn: func(ctx context.Context, snap sessions.Snapshot, ttl time.Duration) (string, error) {
			return "", apperror.NewInternal(errors.New("redis down"))
		},
	}

	_, err := newTestService(repo, sm, nil).Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodeFail)
}

func TestLogin_NewTokenEachTime(t *testing.T) {
	svc, _, sm, _ := newIntegratedService(t)
	register(t, svc, "alice", "password1")

	first, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Token == second.Token {
		t.Error("expected a new token per login")
	}
	if _, err := sm.Validate(context.Background(), first.Token); err != nil {
		t.Errorf("expected earlier token to stay valid: %v", err)
	}
}

func TestLogin_SessionExpires(t *testing.T) {
	svc, _, sm, mr := newIntegratedService(t)
	register(t, svc, "alice", "password1")

	result, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(testSessionTTL + time.Second)

	_, err = sm.Validate(context.Background(), result.Token)
	assertAppError(t, err, apperror.CodeSessionInvalid)
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	svc, repo, _, _ := newIntegratedService(t)

	legacy := LegacyMD5Hasher{}.Hash("password1", "fixed-salt")
	repo.byID[1] = &Account{ID: 1, Username: "dave", Salt: "fixed-salt", PasswordHash: legacy}
	repo.nextID = 1

	if _, err := svc.Login(context.Background(), LoginInput{Username: "dave", Password: "password1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.get(t, "dave")
	if stored.PasswordHash == legacy {
		t.Fatal("expected legacy hash to be replaced")
	}
	if stored.Salt != "fixed-salt" {
		t.Error("expected salt to stay the same")
	}
	if _, err := svc.Login(context.Background(), LoginInput{Username: "dave", Password: "password1"}); err != nil {
		t.Errorf("expected login with upgraded hash: %v", err)
	}
}

func TestLogin_UpgradeFailureDoesNotFailLogin(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*Account, error) {
			return &Account{ID: 2, Username: "dave", Salt: "s", PasswordHash: LegacyMD5Hasher{}.Hash("password1", "s")}, nil
		},
		updatePasswordFn: func(ctx context.Context, id int64, hash string) (int64, error) {
			return 0, errors.New("db down")
		},
	}

	if _, err := newTestService(repo, nil, nil).Login(context.Background(), LoginInput{Username: "dave", Password: "password1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Change Password Tests ---

func TestChangePassword_WrongOldPasswordLeavesHash(t *testing.T) {
	svc, repo, _, _ := newIntegratedService(t)
	account := register(t, svc, "alice", "password1")
	before := repo.get(t, "alice").PasswordHash

	err := svc.ChangePassword(context.Background(), account.ID, ChangePasswordInput{OldPassword: "wrong-pass", NewPassword: "password2"})
	assertAppError(t, err, apperror.CodePasswordMismatch)

	if repo.get(t, "alice").PasswordHash != before {
		t.Error("expected stored hash to be unchanged")
	}
	if _, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password1"}); err != nil {
		t.Errorf("expected original password to still work: %v", err)
	}
}

func TestChangePassword_KeepsSalt(t *testing.T) {
	svc, repo, _, _ := newIntegratedService(t)
	account := register(t, svc, "alice", "password1")
	saltBefore := repo.get(t, "alice").Salt

	if err := svc.ChangePassword(context.Background(), account.ID, ChangePasswordInput{OldPassword: "password1", NewPassword: "password2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.get(t, "alice").Salt != saltBefore {
		t.Error("expected salt to be unchanged after password change")
	}
	_, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodePasswordMismatch)
	if _, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "password2"}); err != nil {
		t.Errorf("expected new password to work: %v", err)
	}
}

func TestChangePassword_UsesStoredSalt(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params)
	var written string
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Account, error) {
			return &Account{ID: id, Username: "alice", Salt: "db-salt", PasswordHash: hasher.Hash("password1", "db-salt")}, nil
		},
		updatePasswordFn: func(ctx context.Context, id int64, hash string) (int64, error) {
			written = hash
			return 1, nil
		},
	}

	err := newTestService(repo, nil, nil).ChangePassword(context.Background(), 3, ChangePasswordInput{OldPassword: "password1", NewPassword: "password2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasher.Verify("password2", "db-salt", written) {
		t.Error("expected new hash to use the stored salt")
	}
}

func TestChangePassword_AccountGone(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil, nil)

	err := svc.ChangePassword(context.Background(), 99, ChangePasswordInput{OldPassword: "password1", NewPassword: "password2"})
	assertAppError(t, err, apperror.CodeUserNotFound)
}

func TestChangePassword_UpdateError(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Account, error) {
			return &Account{ID: id, Salt: "s", PasswordHash: hasher.Hash("password1", "s")}, nil
		},
		updatePasswordFn: func(ctx context.Context, id int64, hash string) (int64, error) {
			return 0, errors.New("db down")
		},
	}

	err := newTestService(repo, nil, nil).ChangePassword(context.Background(), 3, ChangePasswordInput{OldPassword: "password1", NewPassword: "password2"})
	assertAppError(t, err, apperror.CodeFail)
}

// --- Profile Tests ---

func TestGetProfile_ProjectsPublicFields(t *testing.T) {
	svc, _, _, _ := newIntegratedService(t)
	account := register(t, svc, "alice", "password1")

	profile, err := svc.GetProfile(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *profile != (Profile{ID: account.ID, Username: "alice"}) {
		t.Errorf("unexpected profile %+v", profile)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil, nil)

	_, err := svc.GetProfile(context.Background(), 5)
	assertAppError(t, err, apperror.CodeUserNotFound)
}

func TestGetProfile_ReadThroughCache(t *testing.T) {
	store, mr := newRedisStore(t)
	cache := &countingStore{Store: store}
	lookups := 0
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Account, error) {
			lookups++
			return &Account{ID: id, Username: "alice"}, nil
		},
	}
	svc := newTestService(repo, nil, cache)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetProfile(context.Background(), 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if lookups != 1 {
		t.Errorf("expected 1 database lookup, got %d", lookups)
	}
	if cache.gets != 3 {
		t.Errorf("expected 3 cache reads, got %d", cache.gets)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, err := svc.GetProfile(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookups != 2 {
		t.Errorf("expected cache entry to expire, got %d lookups", lookups)
	}
}

func TestGetProfile_CacheFailureFallsBack(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*Account, error) {
			return &Account{ID: id, Username: "alice"}, nil
		},
	}

	profile, err := newTestService(repo, nil, failingStore{}).GetProfile(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Username != "alice" {
		t.Errorf("unexpected profile %+v", profile)
	}
}

// --- Scenario ---

func TestAliceScenario(t *testing.T) {
	svc, _, sm, _ := newIntegratedService(t)
	ctx := context.Background()

	account := register(t, svc, "alice", "password1")

	first, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "password1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	session, err := sm.Validate(ctx, first.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if session.Username != "alice" {
		t.Errorf("expected bound username alice, got %q", session.Username)
	}

	if err := svc.ChangePassword(ctx, account.ID, ChangePasswordInput{OldPassword: "password1", NewPassword: "password2"}); err != nil {
		t.Fatalf("change password: %v", err)
	}

	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "password1"})
	assertAppError(t, err, apperror.CodePasswordMismatch)

	second, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "password2"})
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if second.Token == first.Token {
		t.Error("expected a new token after re-login")
	}
}
