package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/tasso/internal/auth"
	"github.com/garnizeh/tasso/pkg/models"
	"github.com/garnizeh/tasso/pkg/repository/mock"
	"github.com/garnizeh/tasso/pkg/resource"
)

// spyHasher counts how many verifications each call path performs.
type spyHasher struct {
	*auth.Hasher
	verifies atomic.Int64
}

func (s *spyHasher) Verify(encoded, password string) (bool, error) {
	s.verifies.Add(1)
	return s.Hasher.Verify(encoded, password)
}

func (s *spyHasher) FakeVerify(password string) {
	s.verifies.Add(1)
	s.Hasher.FakeVerify(password)
}

func (s *spyHasher) take() int64 { return s.verifies.Swap(0) }

type fixture struct {
	users  *mock.UserRepo
	hasher *spyHasher
	svc    *auth.Service
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  mock.NewUserRepo(),
		hasher: &spyHasher{Hasher: newHasher(t)},
		logs:   &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.svc = auth.NewService(f.users, f.hasher, logger)
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	u := models.NewUser(username)
	if _, err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if password != "" {
		if err := f.svc.SetPassword(context.Background(), u, password); err != nil {
			t.Fatalf("SetPassword returned error: %v", err)
		}
	}
	return u
}

// records decodes the captured JSON log lines.
func (f *fixture) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(f.logs.Bytes()))
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func (f *fixture) find(t *testing.T, msg string) map[string]any {
	t.Helper()
	for _, rec := range f.records(t) {
		if rec["msg"] == msg {
			return rec
		}
	}
	return nil
}

func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "ana", "s3cret!")

	got, err := f.svc.Authenticate(context.Background(), models.Credentials{Username: "ana", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user: %d != %d", got.ID, u.ID)
	}
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "ana", "s3cret!")
	f.hasher.take()

	_, unknownErr := f.svc.Authenticate(ctx, models.Credentials{Username: "nobody", Password: "s3cret!"})
	unknownCost := f.hasher.take()

	_, wrongErr := f.svc.Authenticate(ctx, models.Credentials{Username: "ana", Password: "guess"})
	wrongCost := f.hasher.take()

	if !errors.Is(unknownErr, auth.ErrAuthenticationFailed) || !errors.Is(wrongErr, auth.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages differ: %q vs %q", unknownErr, wrongErr)
	}
	if unknownCost != wrongCost {
		t.Fatalf("verification work differs: unknown user %d, wrong password %d", unknownCost, wrongCost)
	}
	if unknownCost < 1 {
		t.Fatalf("unknown user path skipped verification entirely")
	}
}

func TestAuthenticate_FailureTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("timing comparison skipped in short mode")
	}
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "ana", "s3cret!")

	median := func(creds models.Credentials) time.Duration {
		const trials = 31
		samples := make([]time.Duration, trials)
		for i := range samples {
			start := time.Now()
			if _, err := f.svc.Authenticate(ctx, creds); !errors.Is(err, auth.ErrAuthenticationFailed) {
				t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
			}
			samples[i] = time.Since(start)
		}
		slices.Sort(samples)
		return samples[trials/2]
	}

	unknown := median(models.Credentials{Username: "nobody", Password: "guess"})
	wrong := median(models.Credentials{Username: "ana", Password: "guess"})
	ratio := float64(unknown) / float64(wrong)
	if ratio < 0.5 || ratio > 2 {
		t.Fatalf("failure paths diverge: unknown user %v, wrong password %v", unknown, wrong)
	}
}

func TestAuthenticate_RejectedAccounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	inactive := f.addUser(t, "gone", "pw-inactive")
	inactive.Active = false
	if _, err := f.users.Update(ctx, inactive); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	noHash := f.addUser(t, "fresh", "")
	broken := f.addUser(t, "broken", "")
	if err := f.users.SetPasswordHash(ctx, broken.ID, "not-a-hash"); err != nil {
		t.Fatalf("SetPasswordHash returned error: %v", err)
	}
	costlier := testParams
	costlier.Memory = 4 * testParams.Memory
	recosted := f.addUser(t, "recosted", "")
	if err := f.users.SetPasswordHash(ctx, recosted.ID, argon2iHash(t, "pw-recosted", costlier)); err != nil {
		t.Fatalf("SetPasswordHash returned error: %v", err)
	}
	f.hasher.take()

	_, err := f.svc.Authenticate(ctx, models.Credentials{Username: "nobody", Password: "pw"})
	if !errors.Is(err, auth.ErrAuthenticationFailed) {
		t.Fatalf("unknown user: %v", err)
	}
	baseline := f.hasher.take()

	for _, creds := range []models.Credentials{
		{Username: inactive.Username, Password: "pw-inactive"},
		{Username: noHash.Username, Password: "anything"},
		{Username: broken.Username, Password: "anything"},
		{Username: recosted.Username, Password: "pw-recosted"},
	} {
		_, err := f.svc.Authenticate(ctx, creds)
		if !errors.Is(err, auth.ErrAuthenticationFailed) {
			t.Fatalf("%s: expected ErrAuthenticationFailed, got %v", creds.Username, err)
		}
		if cost := f.hasher.take(); cost != baseline {
			t.Fatalf("%s: verification work %d, want %d", creds.Username, cost, baseline)
		}
	}

	if f.find(t, "stored password hash unusable") == nil {
		t.Fatalf("expected a warning for the malformed stored hash")
	}
}

func TestAuthenticate_RehashesLegacyHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.addUser(t, "legacy", "")
	if err := f.users.SetPasswordHash(ctx, u.ID, argon2iHash(t, "old-secret", testParams)); err != nil {
		t.Fatalf("SetPasswordHash returned error: %v", err)
	}

	if _, err := f.svc.Authenticate(ctx, models.Credentials{Username: "legacy", Password: "old-secret"}); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	stored, err := f.users.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.PasswordHash == nil || !strings.HasPrefix(*stored.PasswordHash, "$argon2id$") {
		t.Fatalf("legacy hash not replaced: %v", stored.PasswordHash)
	}
	if _, err := f.svc.Authenticate(ctx, models.Credentials{Username: "legacy", Password: "old-secret"}); err != nil {
		t.Fatalf("Authenticate after rehash returned error: %v", err)
	}
}

func TestAuthenticate_LookupError(t *testing.T) {
	f := newFixture(t)
	f.users.LookupErr = resource.ErrTransient

	_, err := f.svc.Authenticate(context.Background(), models.Credentials{Username: "ana", Password: "pw"})
	if !errors.Is(err, resource.ErrTransient) {
		t.Fatalf("expected ErrTransient to surface, got %v", err)
	}
	if errors.Is(err, auth.ErrAuthenticationFailed) {
		t.Fatalf("store failure reported as bad credentials")
	}
}

func TestSetPassword_ValidatePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.addUser(t, "ana", "")

	if f.svc.ValidatePassword(u, "anything") {
		t.Fatalf("user without hash must not validate")
	}
	if err := f.svc.SetPassword(ctx, u, "first"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}
	if !f.svc.ValidatePassword(u, "first") || f.svc.ValidatePassword(u, "second") {
		t.Fatalf("ValidatePassword misreports after SetPassword")
	}

	stored, err := f.users.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.PasswordHash == nil || *stored.PasswordHash != *u.PasswordHash {
		t.Fatalf("stored hash does not match the entity")
	}

	if err := f.svc.SetPassword(ctx, u, ""); !errors.Is(err, auth.ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	missing := &models.User{ID: 404, Username: "ghost"}
	if err := f.svc.SetPassword(ctx, missing, "pw"); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}
