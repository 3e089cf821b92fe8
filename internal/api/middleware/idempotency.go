package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/api/problem"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// maxIdempotencyKeyLen bounds the Redis key a client can make us write.
const maxIdempotencyKeyLen = 255

// IdempotencyMiddleware guards the money-moving POST routes. With a store
// configured every request must carry an Idempotency-Key:
//
//   - a repeat with the same body replays the recorded response;
//   - a repeat with a different body is a 409;
//   - a repeat while the first is still running waits for it.
//
// Responses of 500 and above are not recorded, so the key can be retried.
// A nil store turns the middleware into a pass-through.
func IdempotencyMiddleware(store *idempotency.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			rawKey := r.Header.Get(idempotencyHeader)
			switch {
			case rawKey == "":
				observability.IncrementIdempotencyEvent("missing_key")
				idempotencyProblem(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required")
				return
			case len(rawKey) > maxIdempotencyKeyLen:
				idempotencyProblem(w, r, http.StatusBadRequest, "idempotency/invalid-key", "Idempotency-Key is too long")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				idempotencyProblem(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := scopedKey(UserIDFromContext(r.Context()), rawKey)
			reqHash := hashRequest(r.Method, r.URL.Path, body)
			log := logger.With(zap.String("key", key), zap.String("trace_id", TraceIDFromContext(r.Context())))

			if served := replayExisting(w, r, store, log, key, reqHash); served {
				return
			}

			reserved, err := store.Reserve(r.Context(), key, reqHash, r.Method, r.URL.Path)
			if err != nil {
				observability.IncrementIdempotencyEvent("reserve_error")
				log.Error("idempotency reserve failed", zap.Error(err))
				idempotencyProblem(w, r, http.StatusServiceUnavailable, "idempotency/unavailable", "idempotency store unavailable")
				return
			}
			if !reserved {
				// Lost the SETNX race to a concurrent request with the same key.
				waitAndReplay(w, r, store, log, key, reqHash, "replay_after_reserve")
				return
			}
			observability.IncrementIdempotencyEvent("reserved")

			recorder := &bodyRecorder{statusRecorder: statusRecorder{ResponseWriter: w}}
			next.ServeHTTP(recorder, r)
			status := recorder.Status()

			if status >= http.StatusInternalServerError {
				if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
					log.Warn("idempotency release failed", zap.Error(err))
				}
				observability.IncrementIdempotencyEvent("released")
				return
			}

			contentType := recorder.Header().Get("Content-Type")
			if contentType == "" {
				contentType = "application/json"
			}
			if _, err := store.Finalize(context.WithoutCancel(r.Context()), key, reqHash, status, recorder.body.Bytes(), contentType); err != nil {
				observability.IncrementIdempotencyEvent("finalize_error")
				log.Warn("idempotency finalize failed", zap.Error(err))
				return
			}
			observability.IncrementIdempotencyEvent("finalized")
		})
	}
}

// replayExisting answers from a previous attempt with the same key. It
// reports false when the request should run.
func replayExisting(w http.ResponseWriter, r *http.Request, store *idempotency.Store, log *zap.Logger, key, reqHash string) bool {
	rec, err := store.Lookup(r.Context(), key, reqHash)
	switch {
	case err == nil:
		observability.IncrementIdempotencyEvent("replay")
		respondFromRecord(w, rec)
		return true
	case errors.Is(err, idempotency.ErrHashMismatch):
		observability.IncrementIdempotencyEvent("hash_mismatch")
		idempotencyProblem(w, r, http.StatusConflict, "idempotency/key-conflict", "Idempotency-Key was already used with a different request")
		return true
	case errors.Is(err, idempotency.ErrInProgress):
		waitAndReplay(w, r, store, log, key, reqHash, "replay_after_wait")
		return true
	case errors.Is(err, idempotency.ErrNotFound):
		return false
	default:
		// Redis hiccup on read: fall through to Reserve, which decides.
		observability.IncrementIdempotencyEvent("lookup_error")
		log.Warn("idempotency lookup failed", zap.Error(err))
		return false
	}
}

func waitAndReplay(w http.ResponseWriter, r *http.Request, store *idempotency.Store, log *zap.Logger, key, reqHash, event string) {
	rec, err := store.WaitForCompletion(r.Context(), key, reqHash)
	if err != nil {
		observability.IncrementIdempotencyEvent("in_progress_conflict")
		log.Warn("idempotency wait failed", zap.Error(err))
		idempotencyProblem(w, r, http.StatusConflict, "idempotency/in-progress", "a request with this Idempotency-Key is still being processed")
		return
	}
	observability.IncrementIdempotencyEvent(event)
	respondFromRecord(w, rec)
}

func idempotencyProblem(w http.ResponseWriter, r *http.Request, status int, slug, detail string) {
	problem.Write(w, r, status, problem.Type(slug), http.StatusText(status), detail)
}

func scopedKey(userID, key string) string {
	if userID == "" {
		return "anon:" + key
	}
	return userID + ":" + key
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + "|" + path + "|"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyRecorder keeps a copy of the response body for Finalize.
type bodyRecorder struct {
	statusRecorder
	body bytes.Buffer
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	br.body.Write(b)
	return br.statusRecorder.Write(b)
}

func respondFromRecord(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("X-Idempotent-Replay", rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
