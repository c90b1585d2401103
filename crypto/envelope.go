package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jmcleod/pinlock/internal/util"
)

// NonceSize is the fixed nonce prefix length of every envelope.
const NonceSize = util.GCMNonceSize

// Encrypt seals plaintext under key and returns the envelope as standard
// base64 of nonce || ciphertext || tag. A fresh random nonce is drawn on every
// call, so encrypting the same plaintext twice yields different envelopes.
//
// An optional aad binds the envelope to its context; the same aad must be
// passed to Decrypt.
func Encrypt(key *DerivedKey, plaintext []byte, aad ...[]byte) (string, error) {
	var sealed []byte
	err := key.use(func(raw []byte) error {
		var err error
		sealed, err = util.SealAESGCM(plaintext, raw, firstAAD(aad))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("sealing envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt. Any malformed encoding,
// truncated envelope or failed tag verification is reported as ErrDecryption;
// no partial plaintext is ever returned.
func Decrypt(key *DerivedKey, envelope string, aad ...[]byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed envelope encoding", ErrDecryption)
	}
	if len(sealed) <= NonceSize {
		return nil, fmt.Errorf("%w: envelope too short", ErrDecryption)
	}

	var plaintext []byte
	err = key.use(func(raw []byte) error {
		var err error
		plaintext, err = util.OpenAESGCM(sealed, raw, firstAAD(aad))
		return err
	})
	switch {
	case err == nil:
		return plaintext, nil
	case errors.Is(err, ErrKeyDestroyed):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
}

func firstAAD(aad [][]byte) []byte {
	if len(aad) > 0 {
		return aad[0]
	}
	return nil
}
