package crypto

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/jmcleod/pinlock/internal/util"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used when none is given.
	DefaultIterations = 210_000
	// MinIterations is the lowest iteration count DeriveKey accepts.
	MinIterations = util.MinPBKDF2Iterations
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = util.AESKeySize
)

// AppSalt is the fixed application-wide salt used when no per-install salt
// is supplied. Every install that uses it derives the same key from the same PIN.
var AppSalt = []byte("pinlock:local-pin:pbkdf2:v1")

// DeriveOption is a functional option for DeriveKey.
type DeriveOption func(*deriveOptions)

type deriveOptions struct {
	salt       []byte
	iterations int
}

// WithSalt overrides the fixed application salt.
func WithSalt(salt []byte) DeriveOption {
	return func(o *deriveOptions) {
		o.salt = salt
	}
}

// WithIterations sets the PBKDF2 iteration count. Values below MinIterations
// are rejected by DeriveKey.
func WithIterations(n int) DeriveOption {
	return func(o *deriveOptions) {
		o.iterations = n
	}
}

// DerivedKey is a 256-bit AES-GCM key held in a memguard enclave. It cannot be
// exported; the only operations on it are Encrypt, Decrypt, Seal and Open.
type DerivedKey struct {
	mu      sync.Mutex
	enclave *memguard.Enclave
}

// DeriveKey stretches pin into a DerivedKey with PBKDF2-HMAC-SHA256. The PIN
// is NFKD-normalised first. Derivation is deterministic for a given PIN, salt
// and iteration count, and performs no I/O.
func DeriveKey(pin string, opts ...DeriveOption) (*DerivedKey, error) {
	if pin == "" {
		return nil, ErrEmptyPIN
	}

	o := deriveOptions{
		salt:       AppSalt,
		iterations: DefaultIterations,
	}
	for _, opt := range opts {
		opt(&o)
	}

	params := util.PBKDF2Params{Iterations: o.iterations, KeyLen: KeySize}
	if err := util.ValidatePBKDF2Params(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKDFParams, err)
	}
	if len(o.salt) == 0 {
		return nil, fmt.Errorf("%w: salt must not be empty", ErrInvalidKDFParams)
	}

	raw, err := util.DerivePBKDF2Key(util.Normalize(pin), o.salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	// NewEnclave wipes raw.
	enclave := memguard.NewEnclave(raw)
	if enclave == nil {
		return nil, ErrKeyDerivation
	}
	return &DerivedKey{enclave: enclave}, nil
}

// Destroy drops the key material. It is safe to call more than once.
func (k *DerivedKey) Destroy() {
	if k == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.enclave = nil
}

// Destroyed reports whether Destroy has been called.
func (k *DerivedKey) Destroyed() bool {
	if k == nil {
		return true
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enclave == nil
}

// use opens the enclave for the duration of fn. The buffer passed to fn is
// wiped when fn returns and must not be retained.
func (k *DerivedKey) use(fn func(raw []byte) error) error {
	if k == nil {
		return ErrKeyDestroyed
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.enclave == nil {
		return ErrKeyDestroyed
	}

	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
