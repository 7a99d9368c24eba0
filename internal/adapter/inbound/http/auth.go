package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"

	"github.com/Sentinel-Gate/httpdissect/internal/ctxkey"
)

// APIKey is a named argon2id hash of a bearer token.
type APIKey struct {
	Name string
	Hash string
}

// KeyVerifier checks bearer tokens against argon2id hashes. Successful
// verifications are cached by token digest so each token pays the hashing
// cost once.
type KeyVerifier struct {
	keys []APIKey

	mu       sync.RWMutex
	verified map[string]string
}

// NewKeyVerifier creates a verifier. With no keys every request is allowed.
func NewKeyVerifier(keys []APIKey) *KeyVerifier {
	return &KeyVerifier{keys: keys, verified: make(map[string]string)}
}

// Enabled reports whether any key is configured.
func (v *KeyVerifier) Enabled() bool {
	return len(v.keys) > 0
}

// Verify returns the name of the key matching token.
func (v *KeyVerifier) Verify(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(token))
	digest := hex.EncodeToString(sum[:])

	v.mu.RLock()
	name, ok := v.verified[digest]
	v.mu.RUnlock()
	if ok {
		return name, true
	}

	for _, k := range v.keys {
		match, err := argon2id.ComparePasswordAndHash(token, k.Hash)
		if err != nil || !match {
			continue
		}
		v.mu.Lock()
		v.verified[digest] = k.Name
		v.mu.Unlock()
		return k.Name, true
	}
	return "", false
}

// AuthMiddleware rejects requests without a valid "Authorization: Bearer"
// token when the verifier has keys.
func AuthMiddleware(v *KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil || !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="httpdissect"`)
				writeError(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}
			name, ok := v.Verify(strings.TrimSpace(token))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "invalid API key")
				return
			}
			LoggerFromContext(r.Context()).Debug("request authenticated", "key", name)
			ctx := context.WithValue(r.Context(), ctxkey.KeyNameKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KeyNameFromContext returns the authenticated key name, or "".
func KeyNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(ctxkey.KeyNameKey{}).(string)
	return name
}
