// Package server PranuBlog
//
// The PranuBlog backend serves the author's dashboard and the public reading surface of a single-author blog.
//
//     Schemes: https
//     BasePath: /v1
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/pranublog/pranublog/internal/auth"
	mm "github.com/pranublog/pranublog/internal/middleware"
	"github.com/pranublog/pranublog/internal/service"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

const maxBodySize = 64 * 1024

type server struct {
	s service.Service
	v auth.Verifier
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, v auth.Verifier, cache mm.Storage, cacheTTL time.Duration, r chi.Router, timeout time.Duration) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		bodyLimiter(maxBodySize),
	)

	srv := server{
		s: s,
		v: v,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(v))

			r.Get("/dashboard", srv.getDashboard)

			r.Post("/posts", srv.createPost)
			r.Get("/posts", srv.listPosts)
			r.Get("/posts/{id:[0-9]+}", srv.getPost)
			r.Put("/posts/{id:[0-9]+}", srv.updatePost)
			r.Delete("/posts/{id:[0-9]+}", srv.deletePost)
			r.Post("/posts/{id:[0-9]+}/publish", srv.publishPost)
			r.Post("/posts/{id:[0-9]+}/unpublish", srv.unpublishPost)
			r.Post("/posts/{id:[0-9]+}/favorite", srv.toggleFavorite)
		})

		r.Get("/posts/public/list", mm.Cached(cacheTTL, cache, srv.listPublicPosts))
		r.Get("/posts/public/{shareToken}", srv.getPublicPost)
		r.Post("/posts/public/{shareToken}/like", srv.likePost)
		r.Post("/posts/public/{shareToken}/comments", srv.commentPost)
		r.Post("/posts/public/{shareToken}/replies", srv.replyComment)
	})
}

func bodyLimiter(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
