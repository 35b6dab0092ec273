package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerify(t *testing.T) {
	s := NewSigner("checksum-key")
	body := []byte(`{"orderCode":42,"status":"PAID"}`)

	sig := s.Sign(body)
	assert.Len(t, sig, 64, "hex sha256")
	assert.NoError(t, s.Verify(body, sig))
}

func TestVerifyTamper(t *testing.T) {
	s := NewSigner("checksum-key")
	body := []byte(`{"orderCode":42}`)
	sig := s.Sign(body)

	assert.ErrorIs(t, s.Verify([]byte(`{"orderCode":43}`), sig), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(body, "deadbeef"), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(body, "not-hex!"), ErrBadSignature)
	assert.ErrorIs(t, NewSigner("other-key").Verify(body, sig), ErrBadSignature)
}
