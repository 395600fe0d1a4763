package gateway

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "errors"
)

// ErrBadSignature is returned when a signature does not verify.
var ErrBadSignature = errors.New("bad gateway signature")

// Signer authenticates messages exchanged with the gateway using
// HMAC-SHA256 over a shared secret.
type Signer struct {
    secret []byte
}

// NewSigner returns a signer for secret.
func NewSigner(secret string) *Signer {
    return &Signer{secret: []byte(secret)}
}

// Sign returns the hex encoded MAC of msg.
func (s *Signer) Sign(msg []byte) string {
    m := hmac.New(sha256.New, s.secret)
    m.Write(msg)
    return hex.EncodeToString(m.Sum(nil))
}

// Verify checks sig against msg in constant time.
func (s *Signer) Verify(msg []byte, sig string) error {
    got, err := hex.DecodeString(sig)
    if err != nil {
        return ErrBadSignature
    }
    m := hmac.New(sha256.New, s.secret)
    m.Write(msg)
    if !hmac.Equal(got, m.Sum(nil)) {
        return ErrBadSignature
    }
    return nil
}

// ReturnMessage is the signed payload of a checkout redirect.
func ReturnMessage(sessionID, outcome string) []byte {
    return []byte(sessionID + ":" + outcome)
}
