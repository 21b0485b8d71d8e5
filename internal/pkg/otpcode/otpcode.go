// Package otpcode generates login passcodes and the one-way digests stored in their place.
package otpcode

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"math/big"
	"strconv"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// Generate returns a uniformly random six digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// Digester hashes codes with SHA-256, keyed with HMAC when a key is set.
type Digester struct {
	key []byte
}

func NewDigester(key []byte) *Digester {
	return &Digester{key: key}
}

// Digest returns the hex encoded digest of code.
func (d *Digester) Digest(code string) string {
	var h hash.Hash
	if len(d.key) > 0 {
		h = hmac.New(sha256.New, d.key)
	} else {
		h = sha256.New()
	}
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

// Match compares the digest of code against stored in constant time.
func (d *Digester) Match(stored, code string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(d.Digest(code))) == 1
}
