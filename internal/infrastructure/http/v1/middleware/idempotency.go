package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"spareflow/internal/core/apperror"
	appctx "spareflow/internal/core/context"
	"spareflow/internal/infrastructure/storage/postgres"
	"spareflow/pkg/logger"
)

const (
	HeaderIdempotencyKey    = "X-Idempotency-Key"
	maxIdempotencyBodyBytes = 1 << 20
)

// IdempotencyStore keeps keyed responses. Implemented by the postgres and
// in-memory stores.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, actor, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, key string) error
}

// capturingWriter keeps a copy of the response body for storage.
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a POST that carries an
// X-Idempotency-Key already seen for the same actor, route and body.
// Responses below 500 are stored; server errors and panics release the key.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			abortWith(c, apperror.NewValidation("unreadable request body"))
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			abortWith(c, appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(ctx, key, appctx.GetSubject(ctx), operation, hex.EncodeToString(sum[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			abortWith(c, err)
			return
		}
		if replay != nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		// A panic leaves no response to store. The key is released and the
		// panic continues to Recovery.
		defer func() {
			if r := recover(); r != nil {
				if err := store.ReleaseKey(ctx, key); err != nil {
					logger.Warn(ctx, "idempotency key not released after panic", "key", key, "error", err)
				}
				panic(r)
			}
		}()

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// Errors are rendered here so the stored body matches what the client sees.
		if len(c.Errors) > 0 && !w.Written() {
			RenderError(c, c.Errors.Last().Err)
		}

		status := w.Status()
		contentType := w.Header().Get("Content-Type")
		switch {
		case status >= http.StatusInternalServerError:
			err = store.ReleaseKey(ctx, key)
		case status >= http.StatusBadRequest:
			err = store.FailKey(ctx, key, status, contentType, w.body.Bytes())
		default:
			err = store.CompleteKey(ctx, key, status, contentType, w.body.Bytes())
		}
		if err != nil {
			logger.Warn(ctx, "idempotency key not finalized", "key", key, "error", err)
		}
	}
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
