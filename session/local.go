package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/jmcleod/pinlock/crypto"
	icrypto "github.com/jmcleod/pinlock/internal/crypto"
	"github.com/jmcleod/pinlock/internal/util"
	"github.com/jmcleod/pinlock/storage"
)

// Store keys owned by LocalSession.
const (
	KeyHasPin     = "pin/has_pin"
	KeySalt       = "pin/salt"
	KeyIterations = "pin/iterations"
	KeyCheck      = "pin/check"
	StatePrefix   = "state/"

	pinPrefix = "pin/"
)

const (
	// MinPINLength is the shortest PIN Register accepts, in characters.
	MinPINLength = 4

	saltSize      = 16
	pinCheckValue = "pinlock:pin-check:v1"
)

var stateNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// PinState is the local PIN state machine's state.
type PinState string

const (
	NoPinSet PinState = "no_pin_set"
	Locked   PinState = "locked"
	Unlocked PinState = "unlocked"
)

// LocalSession owns the PIN lifecycle and the single in-memory DerivedKey.
// Operations are serialised; the key never leaves the session.
type LocalSession struct {
	store   storage.Store
	opts    localOptions
	audit   *auditLogger
	limiter *attemptLimiter

	mu     sync.Mutex
	hasPin bool
	key    *crypto.DerivedKey
}

// NewLocalSession opens the PIN session over store. It starts Locked when a
// PIN record exists and NoPinSet otherwise; it never starts Unlocked.
func NewLocalSession(ctx context.Context, store storage.Store, opts ...LocalOption) (*LocalSession, error) {
	o := defaultLocalOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.iterations < crypto.MinIterations {
		return nil, fmt.Errorf("pbkdf2 iterations %d below minimum %d", o.iterations, crypto.MinIterations)
	}

	s := &LocalSession{
		store:   store,
		opts:    o,
		audit:   newAuditLogger(o.logger),
		limiter: newAttemptLimiter(o.limiter, o.now),
	}

	hasPin, err := s.readHasPin(ctx)
	if err != nil {
		return nil, err
	}
	s.hasPin = hasPin
	return s, nil
}

// readHasPin requires both the flag and the reference envelope, so a
// half-written registration never counts as a PIN.
func (s *LocalSession) readHasPin(ctx context.Context) (bool, error) {
	flag, err := s.store.Get(ctx, KeyHasPin)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", KeyHasPin, err)
	}
	if flag != "true" {
		return false, nil
	}
	if _, err := s.store.Get(ctx, KeyCheck); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", KeyCheck, err)
	}
	return true, nil
}

// HasPin reports whether a PIN is registered.
func (s *LocalSession) HasPin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPin
}

// IsUnlocked reports whether a key is held.
func (s *LocalSession) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// State returns the current PIN state.
func (s *LocalSession) State() PinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *LocalSession) stateLocked() PinState {
	switch {
	case !s.hasPin:
		return NoPinSet
	case s.key == nil:
		return Locked
	default:
		return Unlocked
	}
}

// Register sets the first PIN and unlocks the session. It is only valid in
// NoPinSet; any leftover protected state from an earlier PIN is discarded.
func (s *LocalSession) Register(ctx context.Context, pin string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasPin {
		return newError(KindState, "a PIN is already set; reset it before registering a new one", nil)
	}
	if utf8.RuneCountInString(pin) < MinPINLength {
		return newError(KindInvalidInput, fmt.Sprintf("PIN must be at least %d characters", MinPINLength), nil)
	}

	var salt []byte
	if s.opts.fixedSalt {
		salt = crypto.AppSalt
	} else {
		var err error
		if salt, err = util.RandomBytes(saltSize); err != nil {
			return newError(KindKeyDerivation, "could not generate salt", err)
		}
	}

	key, err := crypto.DeriveKey(pin, crypto.WithSalt(salt), crypto.WithIterations(s.opts.iterations))
	if err != nil {
		return deriveError(err)
	}
	check, err := crypto.Seal(key, crypto.TextPayload(pinCheckValue), icrypto.AADPINCheck())
	if err != nil {
		key.Destroy()
		return newError(KindKeyDerivation, "could not create PIN record", err)
	}

	stale, err := s.ownedKeys(ctx)
	if err != nil {
		key.Destroy()
		return err
	}
	err = s.store.Batch(ctx, func(tx storage.BatchTx) error {
		for _, k := range stale {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		if !s.opts.fixedSalt {
			if err := tx.Set(KeySalt, util.Base64Encode(salt)); err != nil {
				return err
			}
		}
		if err := tx.Set(KeyIterations, strconv.Itoa(s.opts.iterations)); err != nil {
			return err
		}
		if err := tx.Set(KeyCheck, check); err != nil {
			return err
		}
		return tx.Set(KeyHasPin, "true")
	})
	if err != nil {
		key.Destroy()
		return newError(KindStorage, "could not save PIN record", err)
	}

	s.installKeyLocked(key)
	s.hasPin = true
	s.limiter.reset()
	s.audit.record(AuditPinRegistered, func(e *zerolog.Event) {
		e.Bool("fixed_salt", s.opts.fixedSalt).Int("iterations", s.opts.iterations)
	})
	return nil
}

// Login unlocks a Locked session. A wrong PIN and a damaged PIN record both
// yield (false, KindDecryption "incorrect PIN"). While throttled, Login fails
// with KindThrottled without deriving a key.
func (s *LocalSession) Login(ctx context.Context, pin string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.stateLocked() {
	case NoPinSet:
		return false, newError(KindState, "no PIN is set", nil)
	case Unlocked:
		return false, newError(KindState, "session is already unlocked", nil)
	}

	if blocked, retryAfter := s.limiter.check(); blocked {
		s.audit.recordFailure(AuditPinUnlockThrottled, func(e *zerolog.Event) {
			e.Dur("retry_after", retryAfter)
		})
		return false, &Error{
			Kind:       KindThrottled,
			Message:    "too many failed attempts; try again later",
			RetryAfter: retryAfter,
		}
	}

	salt, iterations, check, err := s.readPinRecord(ctx)
	if err != nil {
		return false, err
	}

	key, err := crypto.DeriveKey(pin, crypto.WithSalt(salt), crypto.WithIterations(iterations))
	if err != nil && errors.Is(err, crypto.ErrKeyDerivation) {
		return false, deriveError(err)
	}
	if err == nil && s.verifyCheck(key, check) {
		s.installKeyLocked(key)
		s.limiter.reset()
		s.audit.record(AuditPinUnlocked)
		return true, nil
	}

	if key != nil {
		key.Destroy()
	}
	s.limiter.recordFailure()
	s.audit.recordFailure(AuditPinUnlockFailed)
	return false, newError(KindDecryption, msgIncorrectPIN, err)
}

func (s *LocalSession) verifyCheck(key *crypto.DerivedKey, check string) bool {
	if check == "" {
		return false
	}
	p, err := crypto.Open(key, check, icrypto.AADPINCheck())
	if err != nil {
		return false
	}
	v, err := p.Text()
	return err == nil && v == pinCheckValue
}

// readPinRecord loads the derivation inputs. A missing salt means the PIN was
// registered with the fixed application salt. A missing reference envelope is
// reported as an empty check so it fails like a wrong PIN.
func (s *LocalSession) readPinRecord(ctx context.Context) (salt []byte, iterations int, check string, err error) {
	salt = crypto.AppSalt
	encSalt, err := s.store.Get(ctx, KeySalt)
	switch {
	case err == nil:
		if salt, err = util.Base64Decode(encSalt); err != nil || len(salt) == 0 {
			return nil, 0, "", newError(KindDecryption, msgIncorrectPIN, fmt.Errorf("corrupt %s", KeySalt))
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, 0, "", newError(KindStorage, "could not read PIN record", err)
	}

	iterations = crypto.DefaultIterations
	rawIter, err := s.store.Get(ctx, KeyIterations)
	switch {
	case err == nil:
		if iterations, err = strconv.Atoi(rawIter); err != nil {
			return nil, 0, "", newError(KindDecryption, msgIncorrectPIN, fmt.Errorf("corrupt %s", KeyIterations))
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, 0, "", newError(KindStorage, "could not read PIN record", err)
	}

	check, err = s.store.Get(ctx, KeyCheck)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, 0, "", newError(KindStorage, "could not read PIN record", err)
	}
	return salt, iterations, check, nil
}

// Lock discards the in-memory key. It is a no-op unless Unlocked.
func (s *LocalSession) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	s.key.Destroy()
	s.key = nil
	s.audit.record(AuditPinLocked)
}

// ResetPin destroys the key, the PIN record and every protected state entry.
// Data encrypted under the old PIN is unrecoverable afterwards.
func (s *LocalSession) ResetPin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}

	keys, err := s.ownedKeys(ctx)
	if err != nil {
		return err
	}
	err = s.store.Batch(ctx, func(tx storage.BatchTx) error {
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return newError(KindStorage, "could not delete PIN record", err)
	}

	s.hasPin = false
	s.limiter.reset()
	s.audit.record(AuditPinReset, func(e *zerolog.Event) {
		e.Int("deleted_keys", len(keys))
	})
	return nil
}

// Save encrypts payload and stores it under name, replacing any previous
// envelope. The envelope is bound to name and cannot be moved to another.
func (s *LocalSession) Save(ctx context.Context, name string, payload crypto.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlockedLocked(); err != nil {
		return err
	}
	if err := validateStateName(name); err != nil {
		return err
	}

	env, err := crypto.Seal(s.key, payload, icrypto.AADState(name))
	if err != nil {
		if errors.Is(err, crypto.ErrUnknownPayloadKind) {
			return newError(KindInvalidInput, "payload kind must be \"json\" or \"text\"", err)
		}
		return newError(KindKeyDerivation, "could not encrypt state", err)
	}
	if err := s.store.Set(ctx, StatePrefix+name, env); err != nil {
		return newError(KindStorage, "could not save state", err)
	}
	return nil
}

// Load decrypts the state stored under name.
func (s *LocalSession) Load(ctx context.Context, name string) (crypto.Payload, error) {
	if err := ctx.Err(); err != nil {
		return crypto.Payload{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlockedLocked(); err != nil {
		return crypto.Payload{}, err
	}
	if err := validateStateName(name); err != nil {
		return crypto.Payload{}, err
	}

	env, err := s.store.Get(ctx, StatePrefix+name)
	if errors.Is(err, storage.ErrNotFound) {
		return crypto.Payload{}, newError(KindNotFound, fmt.Sprintf("no state named %q", name), err)
	}
	if err != nil {
		return crypto.Payload{}, newError(KindStorage, "could not read state", err)
	}

	p, err := crypto.Open(s.key, env, icrypto.AADState(name))
	if err != nil {
		return crypto.Payload{}, newError(KindDecryption, "stored state could not be decrypted", err)
	}
	return p, nil
}

// Remove deletes the state stored under name.
func (s *LocalSession) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlockedLocked(); err != nil {
		return err
	}
	if err := validateStateName(name); err != nil {
		return err
	}

	err := s.store.Delete(ctx, StatePrefix+name)
	if errors.Is(err, storage.ErrNotFound) {
		return newError(KindNotFound, fmt.Sprintf("no state named %q", name), err)
	}
	if err != nil {
		return newError(KindStorage, "could not delete state", err)
	}
	return nil
}

// List returns the names of all stored state entries.
func (s *LocalSession) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlockedLocked(); err != nil {
		return nil, err
	}
	keys, err := s.store.Keys(ctx, StatePrefix)
	if err != nil {
		return nil, newError(KindStorage, "could not list state", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, StatePrefix))
	}
	return names, nil
}

// Close locks the session. It satisfies io.Closer for deferred teardown.
func (s *LocalSession) Close() error {
	s.Lock()
	return nil
}

func (s *LocalSession) requireUnlockedLocked() error {
	switch s.stateLocked() {
	case NoPinSet:
		return newError(KindState, "no PIN is set", nil)
	case Locked:
		return newError(KindState, "session is locked", nil)
	}
	return nil
}

// installKeyLocked makes key the session key, destroying any previous one.
func (s *LocalSession) installKeyLocked(key *crypto.DerivedKey) {
	if s.key != nil && s.key != key {
		s.key.Destroy()
	}
	s.key = key
}

func (s *LocalSession) ownedKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for _, prefix := range []string{pinPrefix, StatePrefix} {
		ks, err := s.store.Keys(ctx, prefix)
		if err != nil {
			return nil, newError(KindStorage, "could not list stored records", err)
		}
		keys = append(keys, ks...)
	}
	return keys, nil
}

func validateStateName(name string) error {
	if !stateNameRE.MatchString(name) {
		return newError(KindInvalidInput, "state name must be 1-128 letters, digits, '.', '_' or '-'", nil)
	}
	return nil
}

func deriveError(err error) *Error {
	switch {
	case errors.Is(err, crypto.ErrEmptyPIN), errors.Is(err, crypto.ErrInvalidKDFParams):
		return newError(KindInvalidInput, "PIN could not be used", err)
	default:
		return newError(KindKeyDerivation, "key derivation failed", err)
	}
}
