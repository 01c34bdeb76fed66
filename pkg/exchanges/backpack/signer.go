// Package backpack implements the Backpack exchange gateway. Authentication
// is a detached ED25519 signature over a deterministic query string, carried
// on every request in X-API-KEY/X-SIGNATURE/X-TIMESTAMP/X-WINDOW headers.
package backpack

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is the signature validity window in milliseconds. The server
// rejects requests whose timestamp is older than the window.
const DefaultWindow int64 = 5000

// Signer produces detached signatures for Backpack requests.
type Signer struct {
	apiKey string
	priv   ed25519.PrivateKey
	window int64
}

// NewSigner builds a signer from the base64-encoded API key and secret. The
// secret may be the 32-byte seed or the full 64-byte private key.
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}
	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("api secret: unexpected key length %d", len(raw))
	}
	return &Signer{apiKey: apiKey, priv: priv, window: DefaultWindow}, nil
}

// signingPayload builds the canonical string the server verifies: the
// instruction, the parameters sorted lexicographically by key, then the
// timestamp and window. Boolean values must already be rendered lower-case by
// the caller.
func signingPayload(instruction string, params map[string]string, timestamp, window int64) string {
	var b strings.Builder
	b.WriteString("instruction=")
	b.WriteString(instruction)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('&')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	b.WriteString("&timestamp=")
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString("&window=")
	b.WriteString(strconv.FormatInt(window, 10))
	return b.String()
}

// Sign signs the canonical payload for instruction/params at the given
// timestamp and returns the base64 signature. The caller must transmit the
// identical timestamp and window or the server rejects the request.
func (s *Signer) Sign(instruction string, params map[string]string, timestamp int64) string {
	payload := signingPayload(instruction, params, timestamp, s.window)
	sig := ed25519.Sign(s.priv, []byte(payload))
	return base64.StdEncoding.EncodeToString(sig)
}

// AuthHeaders signs instruction/params at the current time and returns the
// full header set for the request.
func (s *Signer) AuthHeaders(instruction string, params map[string]string) http.Header {
	timestamp := time.Now().UnixMilli()
	h := http.Header{}
	h.Set("X-API-KEY", s.apiKey)
	h.Set("X-SIGNATURE", s.Sign(instruction, params, timestamp))
	h.Set("X-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	h.Set("X-WINDOW", strconv.FormatInt(s.window, 10))
	return h
}
