package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrBadSignature = errors.New("signature verification failed")

// Signer computes and checks HMAC-SHA256 hex digests with a shared secret.
// Payment providers sign webhook bodies and request canonical strings this way.
type Signer struct {
	key []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 digest of payload.
func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the supplied hex digest against the recomputed one in
// constant time. Any mismatch, including malformed hex, is ErrBadSignature.
func (s *Signer) Verify(payload []byte, hexSig string) error {
	want, err := hex.DecodeString(hexSig)
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), want) {
		return ErrBadSignature
	}
	return nil
}
