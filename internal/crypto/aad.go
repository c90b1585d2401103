package icrypto

import (
	"encoding/binary"
)

const (
	aadDomain   = "pinlock"
	aadState    = "STATE"
	aadPINCheck = "PINCHECK"
	aadVersion  = 1
)

// AADState binds a protected-state envelope to the store entry it is written under.
func AADState(name string) []byte {
	return buildAAD(aadDomain, aadState, name, aadVersion)
}

// AADPINCheck binds the reference envelope used to verify a PIN at login.
func AADPINCheck() []byte {
	return buildAAD(aadDomain, aadPINCheck, aadVersion)
}

func buildAAD(parts ...any) []byte {
	var res []byte
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			res = appendLenPrefix(res, []byte(v))
		case []byte:
			res = appendLenPrefix(res, v)
		case int:
			res = binary.BigEndian.AppendUint32(res, uint32(v))
		}
	}
	return res
}

func appendLenPrefix(b, data []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}
