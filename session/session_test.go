package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/pinlock/crypto"
	"github.com/jmcleod/pinlock/identity"
	"github.com/jmcleod/pinlock/identity/local"
	"github.com/jmcleod/pinlock/internal/logger"
	"github.com/jmcleod/pinlock/internal/util"
	"github.com/jmcleod/pinlock/storage"
	"github.com/jmcleod/pinlock/storage/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func newTestLocal(t *testing.T, store storage.Store, opts ...LocalOption) *LocalSession {
	t.Helper()
	opts = append([]LocalOption{WithIterations(crypto.MinIterations)}, opts...)
	s, err := NewLocalSession(t.Context(), store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
}

func TestLocalSession_StateMachine(t *testing.T) {
	ctx := t.Context()
	s := newTestLocal(t, memory.NewStore())

	assert.Equal(t, NoPinSet, s.State())
	assert.False(t, s.HasPin())
	assert.False(t, s.IsUnlocked())

	require.NoError(t, s.Register(ctx, "1234"))
	assert.Equal(t, Unlocked, s.State())
	assert.True(t, s.HasPin())

	s.Lock()
	assert.Equal(t, Locked, s.State())

	ok, err := s.Login(ctx, "9999")
	assert.False(t, ok)
	assertKind(t, err, KindDecryption)
	assert.Equal(t, "incorrect PIN", MessageOf(err))
	assert.Equal(t, Locked, s.State())
	assert.True(t, s.HasPin())

	ok, err = s.Login(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Unlocked, s.State())
}

func TestLocalSession_InvalidTransitions(t *testing.T) {
	ctx := t.Context()
	s := newTestLocal(t, memory.NewStore())

	_, err := s.Login(ctx, "1234")
	assertKind(t, err, KindState)
	assert.True(t, errors.Is(err, &Error{Kind: KindState}))

	assertKind(t, s.Register(ctx, "12"), KindInvalidInput)
	assert.Equal(t, NoPinSet, s.State())

	require.NoError(t, s.Register(ctx, "1234"))

	_, err = s.Login(ctx, "1234")
	assertKind(t, err, KindState)
	assert.True(t, s.IsUnlocked(), "login while unlocked keeps the key")

	assertKind(t, s.Register(ctx, "5678"), KindState)

	s.Lock()
	s.Lock()
	assertKind(t, s.Register(ctx, "5678"), KindState)
}

func TestLocalSession_PersistsAcrossInstances(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	first := newTestLocal(t, store)
	require.NoError(t, first.Register(ctx, "2468"))
	require.NoError(t, first.Save(ctx, "draft-invoice", crypto.TextPayload("F-0042")))
	first.Lock()

	second := newTestLocal(t, store)
	assert.Equal(t, Locked, second.State(), "a fresh session never starts unlocked")

	ok, err := second.Login(ctx, "2468")
	require.NoError(t, err)
	require.True(t, ok)

	p, err := second.Load(ctx, "draft-invoice")
	require.NoError(t, err)
	text, err := p.Text()
	require.NoError(t, err)
	assert.Equal(t, "F-0042", text)
}

func TestLocalSession_ExistingIterationsWin(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	first := newTestLocal(t, store)
	require.NoError(t, first.Register(ctx, "2468"))
	first.Lock()

	second := newTestLocal(t, store, WithIterations(crypto.MinIterations+1))
	ok, err := second.Login(ctx, "2468")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalSession_Salt(t *testing.T) {
	ctx := t.Context()

	t.Run("PerInstall", func(t *testing.T) {
		a, b := memory.NewStore(), memory.NewStore()
		require.NoError(t, newTestLocal(t, a).Register(ctx, "1234"))
		require.NoError(t, newTestLocal(t, b).Register(ctx, "1234"))

		saltA, err := a.Get(ctx, KeySalt)
		require.NoError(t, err)
		saltB, err := b.Get(ctx, KeySalt)
		require.NoError(t, err)
		assert.NotEqual(t, saltA, saltB)

		raw, err := util.Base64Decode(saltA)
		require.NoError(t, err)
		assert.Len(t, raw, saltSize)
	})

	t.Run("Fixed", func(t *testing.T) {
		store := memory.NewStore()
		s := newTestLocal(t, store, WithFixedSalt())
		require.NoError(t, s.Register(ctx, "1234"))

		_, err := store.Get(ctx, KeySalt)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		s.Lock()
		ok, err := s.Login(ctx, "1234")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestLocalSession_ResetIsIrreversible(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()
	s := newTestLocal(t, store)

	require.NoError(t, s.Register(ctx, "1234"))
	payload, err := crypto.JSONPayload(map[string]any{"total": 99.5})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "cart", payload))

	require.NoError(t, s.ResetPin(ctx))
	assert.Equal(t, NoPinSet, s.State())
	assert.False(t, s.HasPin())

	ok, err := s.Login(ctx, "1234")
	assert.False(t, ok)
	assertKind(t, err, KindState)

	for _, prefix := range []string{"pin/", "state/"} {
		keys, err := store.Keys(ctx, prefix)
		require.NoError(t, err)
		assert.Empty(t, keys, "prefix %s", prefix)
	}

	require.NoError(t, s.Register(ctx, "1234"))
	_, err = s.Load(ctx, "cart")
	assertKind(t, err, KindNotFound)
}

func TestLocalSession_RegisterDiscardsLeftovers(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()
	// A state envelope without a PIN record is never decryptable.
	require.NoError(t, store.Set(ctx, "state/orphan", "bm90IGFuIGVudmVsb3Bl"))
	require.NoError(t, store.Set(ctx, KeyHasPin, "true"))

	s := newTestLocal(t, store)
	assert.Equal(t, NoPinSet, s.State(), "has_pin without a reference envelope is not a PIN")

	require.NoError(t, s.Register(ctx, "1234"))
	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalSession_TamperedCheckLooksLikeWrongPIN(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()
	s := newTestLocal(t, store)
	require.NoError(t, s.Register(ctx, "1234"))
	s.Lock()

	check, err := store.Get(ctx, KeyCheck)
	require.NoError(t, err)
	raw, err := util.Base64Decode(check)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	require.NoError(t, store.Set(ctx, KeyCheck, util.Base64Encode(raw)))

	ok, err := s.Login(ctx, "1234")
	assert.False(t, ok)
	assertKind(t, err, KindDecryption)
	assert.Equal(t, "incorrect PIN", MessageOf(err))
}

func TestLocalSession_ProtectedState(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()
	s := newTestLocal(t, store)

	assertKind(t, s.Save(ctx, "a", crypto.TextPayload("x")), KindState)
	require.NoError(t, s.Register(ctx, "1234"))

	type draft struct {
		Customer string  `json:"customer"`
		Amount   float64 `json:"amount"`
	}
	p, err := crypto.JSONPayload(draft{Customer: "ACME", Amount: 12.5})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "invoice-draft", p))
	require.NoError(t, s.Save(ctx, "note", crypto.TextPayload("call supplier")))

	raw, err := store.Get(ctx, "state/invoice-draft")
	require.NoError(t, err)
	assert.NotContains(t, raw, "ACME", "state is stored encrypted")

	got, err := s.Load(ctx, "invoice-draft")
	require.NoError(t, err)
	assert.Equal(t, crypto.KindJSON, got.Kind)
	var d draft
	require.NoError(t, got.Decode(&d))
	assert.Equal(t, draft{Customer: "ACME", Amount: 12.5}, d)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice-draft", "note"}, names)

	t.Run("SwappedEnvelopeRejected", func(t *testing.T) {
		note, err := store.Get(ctx, "state/note")
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "state/invoice-draft", note))
		_, err = s.Load(ctx, "invoice-draft")
		assertKind(t, err, KindDecryption)
	})

	t.Run("InvalidName", func(t *testing.T) {
		assertKind(t, s.Save(ctx, "../pin/check", crypto.TextPayload("x")), KindInvalidInput)
		assertKind(t, s.Save(ctx, "", crypto.TextPayload("x")), KindInvalidInput)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		assertKind(t, s.Save(ctx, "bad", crypto.Payload{Kind: "xml"}), KindInvalidInput)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, "note"))
		assertKind(t, s.Remove(ctx, "note"), KindNotFound)
	})

	t.Run("LockedAccess", func(t *testing.T) {
		s.Lock()
		_, err := s.Load(ctx, "invoice-draft")
		assertKind(t, err, KindState)
		_, err = s.List(ctx)
		assertKind(t, err, KindState)
	})
}

func TestLocalSession_Throttling(t *testing.T) {
	ctx := t.Context()
	clock := newClock()
	s := newTestLocal(t, memory.NewStore(), WithClock(clock.Now), WithLimiter(LimiterConfig{
		MaxFailures: 3,
		BaseLockout: 30 * time.Second,
		MaxLockout:  time.Minute,
	}))
	require.NoError(t, s.Register(ctx, "1234"))
	s.Lock()

	for i := 0; i < 3; i++ {
		_, err := s.Login(ctx, "0000")
		assertKind(t, err, KindDecryption)
	}

	_, err := s.Login(ctx, "1234")
	assertKind(t, err, KindThrottled)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 30*time.Second, se.RetryAfter)
	assert.Equal(t, Locked, s.State(), "throttled login must not unlock even with the right PIN")

	clock.Advance(31 * time.Second)
	_, err = s.Login(ctx, "0000")
	assertKind(t, err, KindDecryption)

	_, err = s.Login(ctx, "1234")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, time.Minute, se.RetryAfter)

	clock.Advance(time.Minute + time.Second)
	ok, err := s.Login(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	s.Lock()
	_, err = s.Login(ctx, "0000")
	assertKind(t, err, KindDecryption)
}

func TestLocalSession_AuditNeverLogsPIN(t *testing.T) {
	ctx := t.Context()
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", "json")

	s := newTestLocal(t, memory.NewStore(), WithLogger(log))
	require.NoError(t, s.Register(ctx, "739146"))
	s.Lock()
	_, _ = s.Login(ctx, "111111")
	_, err := s.Login(ctx, "739146")
	require.NoError(t, err)
	require.NoError(t, s.ResetPin(ctx))

	out := buf.String()
	for _, ev := range []AuditEvent{AuditPinRegistered, AuditPinLocked, AuditPinUnlockFailed, AuditPinUnlocked, AuditPinReset} {
		assert.Contains(t, out, `"event":"`+string(ev)+`"`)
	}
	assert.NotContains(t, out, "739146")
	assert.NotContains(t, out, "111111")
}

func TestLocalSession_RejectsWeakIterations(t *testing.T) {
	_, err := NewLocalSession(t.Context(), memory.NewStore(), WithIterations(1000))
	assert.Error(t, err)
}

func TestLocalSession_CanceledContext(t *testing.T) {
	s := newTestLocal(t, memory.NewStore())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, s.Register(ctx, "1234"), context.Canceled)
	assert.Equal(t, NoPinSet, s.State())
}

func TestAttemptLimiter(t *testing.T) {
	clock := newClock()
	l := newAttemptLimiter(DefaultLimiterConfig(), clock.Now)

	for i := 0; i < 4; i++ {
		l.recordFailure()
	}
	blocked, _ := l.check()
	assert.False(t, blocked, "below the threshold")

	l.recordFailure()
	blocked, wait := l.check()
	assert.True(t, blocked)
	assert.Equal(t, 30*time.Second, wait)

	// 30s doubling: 60s, 120s, ... capped at 15m.
	for i := 0; i < 10; i++ {
		l.recordFailure()
	}
	_, wait = l.check()
	assert.Equal(t, 15*time.Minute, wait)

	l.reset()
	blocked, _ = l.check()
	assert.False(t, blocked)
}

// --- assurance ---

var cheapArgon = util.Argon2idParams{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, KeyLen: 32}

func newTestProvider(t *testing.T, clock *fakeClock) *local.Provider {
	t.Helper()
	p := local.New(local.WithClock(clock.Now), local.WithArgon2idParams(cheapArgon))
	_, err := p.AddUser("owner@example.test", "hunter22")
	require.NoError(t, err)
	return p
}

func totpCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	c, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1})
	require.NoError(t, err)
	return c
}

func wrongCode(c string) string {
	d := (c[0]-'0'+1)%10 + '0'
	return string(d) + c[1:]
}

func TestAssurance_EnrollmentPath(t *testing.T) {
	ctx := t.Context()
	clock := newClock()
	a := NewAssurance(newTestProvider(t, clock))

	level, err := a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, level)
	step, err := a.Route(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepSignIn, step)

	level, err = a.SignIn(ctx, "owner@example.test", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, SingleFactor, level)

	factors, err := a.Factors(ctx)
	require.NoError(t, err)
	assert.Empty(t, factors)

	step, err = a.Route(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepEnroll, step, "zero factors must route to enrollment")

	enr, err := a.Enroll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)

	step, err = a.Route(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepEnroll, step, "an unverified factor does not satisfy the challenge path")

	ok, err := a.Verify(ctx, enr.FactorID, wrongCode(totpCode(t, enr.Secret, clock.Now())))
	assert.False(t, ok)
	assertKind(t, err, KindRemoteAuth)
	assert.Equal(t, "invalid TOTP code", MessageOf(err))

	level, err = a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, SingleFactor, level, "failed verify leaves the level unchanged")

	ok, err = a.Verify(ctx, enr.FactorID, totpCode(t, enr.Secret, clock.Now()))
	require.NoError(t, err)
	assert.True(t, ok)

	step, err = a.Route(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepProceed, step)

	_, err = a.Enroll(ctx)
	assertKind(t, err, KindState)
}

func TestAssurance_ChallengePath(t *testing.T) {
	ctx := t.Context()
	clock := newClock()
	a := NewAssurance(newTestProvider(t, clock))

	_, err := a.SignIn(ctx, "owner@example.test", "hunter22")
	require.NoError(t, err)
	enr, err := a.Enroll(ctx)
	require.NoError(t, err)
	_, err = a.Verify(ctx, enr.FactorID, totpCode(t, enr.Secret, clock.Now()))
	require.NoError(t, err)

	require.NoError(t, a.SignOut(ctx))
	level, err := a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, level)

	_, err = a.SignIn(ctx, "owner@example.test", "hunter22")
	require.NoError(t, err)
	step, err := a.Route(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepChallenge, step)

	clock.Advance(time.Minute)
	ok, err := a.Verify(ctx, enr.FactorID, totpCode(t, enr.Secret, clock.Now()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAssurance_EnrollRequiresChallengeOnceVerified(t *testing.T) {
	ctx := t.Context()
	clock := newClock()
	var buf bytes.Buffer
	a := NewAssurance(newTestProvider(t, clock), WithAssuranceLogger(logger.NewWithWriter(&buf, "debug", "json")))

	_, err := a.SignIn(ctx, "owner@example.test", "hunter22")
	require.NoError(t, err)
	enr, err := a.Enroll(ctx)
	require.NoError(t, err)
	_, err = a.Verify(ctx, enr.FactorID, totpCode(t, enr.Secret, clock.Now()))
	require.NoError(t, err)
	require.NoError(t, a.SignOut(ctx))

	// Password only: a second factor must not be enrollable.
	_, err = a.SignIn(ctx, "owner@example.test", "hunter22")
	require.NoError(t, err)
	_, err = a.Enroll(ctx)
	assertKind(t, err, KindState)
	assert.Contains(t, buf.String(), `"event":"`+string(AuditFactorEnrollDenied)+`"`)

	factors, err := a.Factors(ctx)
	require.NoError(t, err)
	assert.Len(t, factors, 1)

	level, err := a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, SingleFactor, level)
}

// stuckProvider accepts every code but never raises the session to aal2.
type stuckProvider struct {
	identity.Provider
}

func (stuckProvider) AssuranceLevel(context.Context) (identity.AssuranceLevels, error) {
	return identity.AssuranceLevels{Current: identity.AAL1, Next: identity.AAL2}, nil
}

func (stuckProvider) CreateChallenge(_ context.Context, factorID string) (*identity.Challenge, error) {
	return &identity.Challenge{ID: "c1", FactorID: factorID}, nil
}

func (stuckProvider) VerifyChallenge(context.Context, string, string, string) error {
	return nil
}

func TestAssurance_VerifyWithoutUpgrade(t *testing.T) {
	var buf bytes.Buffer
	a := NewAssurance(stuckProvider{}, WithAssuranceLogger(logger.NewWithWriter(&buf, "debug", "json")))

	ok, err := a.Verify(t.Context(), "f1", "123456")
	assert.False(t, ok)
	assertKind(t, err, KindRemoteAuth)
	assert.Contains(t, MessageOf(err), "single_factor")

	out := buf.String()
	assert.Contains(t, out, `"event":"`+string(AuditFactorVerifyFailed)+`"`)
	assert.NotContains(t, out, `"event":"`+string(AuditFactorVerified)+`"`)
}

func TestAssurance_Failures(t *testing.T) {
	ctx := t.Context()
	a := NewAssurance(newTestProvider(t, newClock()))

	level, err := a.SignIn(ctx, "owner@example.test", "wrong")
	assertKind(t, err, KindRemoteAuth)
	assert.Equal(t, Unauthenticated, level)
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))

	_, err = a.SignIn(ctx, "", "x")
	assertKind(t, err, KindInvalidInput)

	_, err = a.Enroll(ctx)
	assertKind(t, err, KindState)

	_, err = a.Verify(ctx, "f", "123456")
	assertKind(t, err, KindState)

	_, err = a.Verify(ctx, "", "")
	assertKind(t, err, KindInvalidInput)
}

// countingProvider reports a scripted level and counts how often it is asked.
type countingProvider struct {
	identity.Provider
	level identity.AAL
	calls int
	err   error
}

func (p *countingProvider) AssuranceLevel(ctx context.Context) (identity.AssuranceLevels, error) {
	p.calls++
	return identity.AssuranceLevels{Current: p.level, Next: p.level}, p.err
}

func TestAssurance_NeverCaches(t *testing.T) {
	ctx := t.Context()
	p := &countingProvider{level: identity.AAL2}
	a := NewAssurance(p)

	level, err := a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, TwoFactor, level)

	p.level = identity.AAL1
	level, err = a.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, SingleFactor, level, "a downgrade must be seen on the next check")
	assert.Equal(t, 2, p.calls)

	p.err = &identity.ProviderError{StatusCode: 503, Message: "upstream unavailable"}
	_, err = a.Check(ctx)
	assertKind(t, err, KindRemoteAuth)
	assert.Equal(t, "upstream unavailable", MessageOf(err))
}

// --- controller ---

func TestController(t *testing.T) {
	ctx := t.Context()
	clock := newClock()
	pin := newTestLocal(t, memory.NewStore())
	a := NewAssurance(newTestProvider(t, clock))
	c := NewController(pin, a)

	ok, err := c.CanProceed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	st := c.Status(ctx)
	assert.Equal(t, Status{PinState: NoPinSet, Level: Unauthenticated, Next: StepSignIn}, st)

	require.NoError(t, pin.Register(ctx, "1234"))
	_, err = a.SignIn(ctx, "owner@example.test", "hunter22")
	require.NoError(t, err)

	ok, err = c.CanProceed(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "single factor is not enough")

	enr, err := a.Enroll(ctx)
	require.NoError(t, err)
	_, err = a.Verify(ctx, enr.FactorID, totpCode(t, enr.Secret, clock.Now()))
	require.NoError(t, err)

	ok, err = c.CanProceed(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	st = c.Status(ctx)
	assert.Equal(t, Status{PinState: Unlocked, HasPin: true, Unlocked: true, Level: TwoFactor, Next: StepProceed, CanProceed: true}, st)

	c.Teardown()
	assert.Equal(t, Locked, pin.State())
	ok, err = c.CanProceed(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "two factors without the local key is not enough")
}

func TestController_ProviderUnreachable(t *testing.T) {
	ctx := t.Context()
	pin := newTestLocal(t, memory.NewStore())
	c := NewController(pin, NewAssurance(&countingProvider{err: errors.New("connection refused")}))

	require.NoError(t, pin.Register(ctx, "1234"))

	st := c.Status(ctx)
	assert.Equal(t, Unlocked, st.PinState)
	assert.True(t, st.Unlocked)
	assert.Equal(t, Unauthenticated, st.Level)
	assert.Equal(t, StepSignIn, st.Next)
	assert.False(t, st.CanProceed)
	assert.Equal(t, "connection refused", st.RemoteError)

	_, err := c.CanProceed(ctx)
	assertKind(t, err, KindRemoteAuth)
}

func TestLevelText(t *testing.T) {
	for _, l := range []Level{Unauthenticated, SingleFactor, TwoFactor} {
		b, err := l.MarshalText()
		require.NoError(t, err)
		var got Level
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, l, got)
	}
	var l Level
	assert.Error(t, l.UnmarshalText([]byte("three_factor")))
}
