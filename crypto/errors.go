package crypto

import "errors"

var (
	ErrEmptyPIN = errors.New("pin must not be empty")
	// ErrInvalidKDFParams is returned for an iteration count or salt that
	// does not meet the derivation minimums.
	ErrInvalidKDFParams   = errors.New("invalid key derivation parameters")
	ErrKeyDerivation      = errors.New("key derivation failed")
	ErrDecryption         = errors.New("decryption failed")
	ErrKeyDestroyed       = errors.New("key has been destroyed")
	ErrUnknownPayloadKind = errors.New("unknown payload kind")
)
