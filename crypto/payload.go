package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/jmcleod/pinlock/internal/util"
)

// PayloadKind tags what an envelope's plaintext holds.
type PayloadKind string

const (
	KindJSON PayloadKind = "json"
	KindText PayloadKind = "text"
)

// Payload is the tagged plaintext stored inside an envelope. Value is always
// valid JSON; for KindText it is a JSON string.
type Payload struct {
	Kind  PayloadKind     `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// TextPayload wraps a plain string.
func TextPayload(s string) Payload {
	v, _ := json.Marshal(s)
	return Payload{Kind: KindText, Value: v}
}

// JSONPayload marshals v as a structured payload.
func JSONPayload(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("marshaling payload: %w", err)
	}
	return Payload{Kind: KindJSON, Value: raw}, nil
}

// Validate checks the kind tag and that Value matches it.
func (p Payload) Validate() error {
	switch p.Kind {
	case KindText:
		var s string
		if err := json.Unmarshal(p.Value, &s); err != nil {
			return fmt.Errorf("%w: text payload value must be a string", ErrUnknownPayloadKind)
		}
	case KindJSON:
		if !json.Valid(p.Value) {
			return fmt.Errorf("%w: json payload value is not valid JSON", ErrUnknownPayloadKind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPayloadKind, p.Kind)
	}
	return nil
}

// Text returns the string held by a text payload.
func (p Payload) Text() (string, error) {
	if p.Kind != KindText {
		return "", fmt.Errorf("payload kind is %q, not %q", p.Kind, KindText)
	}
	var s string
	if err := json.Unmarshal(p.Value, &s); err != nil {
		return "", fmt.Errorf("decoding text payload: %w", err)
	}
	return s, nil
}

// Decode unmarshals the payload value into v.
func (p Payload) Decode(v any) error {
	if err := json.Unmarshal(p.Value, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", p.Kind, err)
	}
	return nil
}

// Seal validates p and encrypts its tagged form under key.
func Seal(key *DerivedKey, p Payload, aad ...[]byte) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}
	defer util.WipeBytes(plaintext)
	return Encrypt(key, plaintext, aad...)
}

// Open decrypts an envelope produced by Seal. Plaintext that does not carry
// a known kind tag fails with ErrUnknownPayloadKind.
func Open(key *DerivedKey, envelope string, aad ...[]byte) (Payload, error) {
	plaintext, err := Decrypt(key, envelope, aad...)
	if err != nil {
		return Payload{}, err
	}
	defer util.WipeBytes(plaintext)

	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: plaintext is not a tagged payload", ErrUnknownPayloadKind)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
