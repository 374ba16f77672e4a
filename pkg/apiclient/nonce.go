package apiclient

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Nonce header names.
const (
	HeaderRequestKey       = "X-Request-Key"
	HeaderRequestTimestamp = "X-Request-Timestamp"
	HeaderRequestNonce     = "X-Request-Nonce"
)

const (
	nonceMaxAttempts     = 1000
	nonceMarkOffset      = 5
	nonceCandidateLength = 12
	nonceAlphabet        = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Nonce is the per-request tag attached to outbound requests. Value is empty
// when no candidate matched within the attempt budget.
type Nonce struct {
	RequestKey string
	Timestamp  int64
	Value      string
	Attempts   int
}

// Headers returns the nonce headers; the nonce itself is omitted when empty.
func (n Nonce) Headers() map[string]string {
	h := map[string]string{
		HeaderRequestKey:       n.RequestKey,
		HeaderRequestTimestamp: strconv.FormatInt(n.Timestamp, 10),
	}
	if n.Value != "" {
		h[HeaderRequestNonce] = n.Value
	}
	return h
}

// HashFunc returns a hex digest of its input.
type HashFunc func(string) string

// SHA256Hex is the default nonce hash.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NonceGenerator produces proof-of-work style nonces. This is request
// tagging, not a security boundary.
type NonceGenerator struct {
	hash        HashFunc
	newKey      func() string
	candidate   func() string
	now         func() time.Time
	maxAttempts int
}

// NonceOption customizes a NonceGenerator.
type NonceOption func(*NonceGenerator)

// WithNonceHash replaces the hash function.
func WithNonceHash(h HashFunc) NonceOption {
	return func(g *NonceGenerator) { g.hash = h }
}

// WithNonceKeySource replaces the request key generator.
func WithNonceKeySource(f func() string) NonceOption {
	return func(g *NonceGenerator) { g.newKey = f }
}

// WithNonceCandidates replaces the random candidate source.
func WithNonceCandidates(f func() string) NonceOption {
	return func(g *NonceGenerator) { g.candidate = f }
}

// WithNonceClock replaces the clock used for timestamps.
func WithNonceClock(now func() time.Time) NonceOption {
	return func(g *NonceGenerator) { g.now = now }
}

// NewNonceGenerator builds a generator with the default sources.
func NewNonceGenerator(opts ...NonceOption) *NonceGenerator {
	g := &NonceGenerator{
		hash:        SHA256Hex,
		newKey:      uuid.NewString,
		candidate:   randomCandidate,
		now:         time.Now,
		maxAttempts: nonceMaxAttempts,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate creates a request key and timestamp and solves a nonce for them.
func (g *NonceGenerator) Generate() Nonce {
	key := g.newKey()
	ts := g.now().UnixMilli()
	value, attempts := g.Solve(key, ts)
	return Nonce{RequestKey: key, Timestamp: ts, Value: value, Attempts: attempts}
}

// Solve searches for a candidate whose hash ends with the request key's mark.
// It gives up after the attempt budget and returns an empty string.
func (g *NonceGenerator) Solve(requestKey string, timestamp int64) (string, int) {
	mark, ok := nonceMark(requestKey)
	if !ok {
		return "", 0
	}
	suffix := strconv.FormatInt(timestamp, 10) + requestKey
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate := g.candidate()
		if lastByte(g.hash(candidate+suffix)) == mark {
			return candidate, attempt
		}
	}
	return "", g.maxAttempts
}

// VerifyNonce checks a nonce against its request key and timestamp using hash.
func VerifyNonce(hash HashFunc, requestKey string, timestamp int64, nonce string) bool {
	if nonce == "" {
		return false
	}
	mark, ok := nonceMark(requestKey)
	if !ok {
		return false
	}
	if hash == nil {
		hash = SHA256Hex
	}
	return lastByte(hash(nonce+strconv.FormatInt(timestamp, 10)+requestKey)) == mark
}

func nonceMark(requestKey string) (byte, bool) {
	if len(requestKey) <= nonceMarkOffset {
		return 0, false
	}
	return requestKey[nonceMarkOffset], true
}

func lastByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func randomCandidate() string {
	b := make([]byte, nonceCandidateLength)
	for i := range b {
		b[i] = nonceAlphabet[rand.IntN(len(nonceAlphabet))]
	}
	return string(b)
}
