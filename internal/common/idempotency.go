package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem deduplicates write requests by their Idempotency-Key header. It is
// mounted on cart mutations and the settlement close route, where a retried
// POST must not add a second line or re-trigger a close.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// idemKey hashes the client-chosen header so arbitrary input never becomes
// a raw redis key. The pos: prefix keeps the namespace apart from lock and
// queue keys on a shared instance.
func idemKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return "pos:idem:" + hex.EncodeToString(sum[:])
}

// Middleware claims the key with SetNX. The first request through proceeds;
// any replay inside the TTL gets 409 IDEMPOTENT_REPLAY. Requests without
// the header pass untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(header)
		ok, err := i.R.SetNX(r.Context(), key, "claimed", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keep the claim alive even if the handler panics mid-flight
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
