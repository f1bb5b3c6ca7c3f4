// Package middleware ...
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"
)

// Storage ...
type Storage interface {
	Get(ctx context.Context, key string) []byte
	Set(ctx context.Context, key string, content []byte, ttl time.Duration)
}

// Cached replays a stored response of handler for ttl, keyed by request URI.
func Cached(ttl time.Duration, storage Storage, handler func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content := storage.Get(r.Context(), r.RequestURI)
		if content != nil {
			_, _ = w.Write(content)
		} else {
			c := httptest.NewRecorder()
			handler(c, r)

			for k, v := range c.Header() {
				w.Header()[k] = v
			}

			w.WriteHeader(c.Code)
			content := c.Body.Bytes()

			if c.Code == http.StatusOK {
				storage.Set(r.Context(), r.RequestURI, content, ttl)
			}

			_, _ = w.Write(content)
		}
	}
}
