package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"

	"github.com/pranublog/pranublog/internal/auth"
	"github.com/pranublog/pranublog/internal/dashboard"
	"github.com/pranublog/pranublog/internal/entities"
	"github.com/pranublog/pranublog/internal/service"
	"github.com/pranublog/pranublog/internal/storage"
)

var errInvalidRequest = errors.New("invalid request")

func (s server) getDashboard(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /dashboard Dashboard GetDashboard
	//
	// Return the owner's aggregate metrics with recent and filtered post collections.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: search
	//   description: filters posts by a case-insensitive substring of title or content
	//   in: query
	//   required: false
	// - name: status
	//   description: filters posts by status
	//   in: query
	//   required: false
	//   type: string
	//   enum: [DRAFT, PUBLISHED, ARCHIVED]
	// - name: fromDate
	//   description: sets inclusive lower creation date bound, YYYY-MM-DD
	//   in: query
	//   required: false
	// - name: toDate
	//   description: sets inclusive upper creation date bound, YYYY-MM-DD
	//   in: query
	//   required: false
	// - name: favoritesOnly
	//   description: keeps only favorited posts
	//   in: query
	//   required: false
	//   type: boolean
	// - name: sortBy
	//   description: sets posts' field to be sorted by
	//   in: query
	//   required: false
	//   default: RECENT
	//   type: string
	//   enum: [RECENT, TOP_VIEWS, TOP_LIKES, TOP_COMMENTS]
	// - name: page
	//   description: zero-based page number
	//   in: query
	//   required: false
	//   default: 0
	// - name: size
	//   description: page size
	//   in: query
	//   required: false
	//   default: 10
	//   maximum: 100
	// responses:
	//   '200':
	//     description: Dashboard
	//     schema:
	//       "$ref": "#/definitions/DashboardResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	owner, ok := auth.OwnerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	params, err := extractDashboardParamsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.s.GetDashboard(r.Context(), owner, params)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to get dashboard")
		return
	}

	writeOK(w, http.StatusOK, newDashboardResponse(resp))
}

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.OwnerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	allowComments := true
	if req.AllowComments != nil {
		allowComments = *req.AllowComments
	}

	post, err := s.s.CreatePost(r.Context(), owner, &service.CreatePostParams{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		CoverImageURL: req.CoverImageURL,
		IsPublic:      req.IsPublic,
		AllowComments: allowComments,
	})
	if err != nil {
		s.writeServiceError(r, w, err, "failed to create post")
		return
	}

	writeOK(w, http.StatusCreated, toAPIPost(post))
}

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.OwnerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	posts, err := s.s.ListPosts(r.Context(), owner)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to list posts")
		return
	}

	writeOK(w, http.StatusOK, toAPIPosts(posts))
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.ownedPostID(w, r)
	if !ok {
		return
	}

	post, err := s.s.GetPost(r.Context(), owner, id)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to get post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) updatePost(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.ownedPostID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Title != nil && *req.Title == "" {
		writeError(w, http.StatusBadRequest, "title can not be empty")
		return
	}

	post, err := s.s.UpdatePost(r.Context(), owner, id, &service.UpdatePostParams{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		CoverImageURL: req.CoverImageURL,
		IsPublic:      req.IsPublic,
		AllowComments: req.AllowComments,
	})
	if err != nil {
		s.writeServiceError(r, w, err, "failed to update post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) deletePost(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.ownedPostID(w, r)
	if !ok {
		return
	}

	if err := s.s.DeletePost(r.Context(), owner, id); err != nil {
		s.writeServiceError(r, w, err, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s server) publishPost(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.ownedPostID(w, r)
	if !ok {
		return
	}

	post, err := s.s.PublishPost(r.Context(), owner, id)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to publish post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) unpublishPost(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.ownedPostID(w, r)
	if !ok {
		return
	}

	post, err := s.s.UnpublishPost(r.Context(), owner, id)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to unpublish post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := s.ownedPostID(w, r)
	if !ok {
		return
	}

	post, err := s.s.ToggleFavorite(r.Context(), owner, id)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to toggle favorite")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) listPublicPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.s.ListPublicPosts(r.Context())
	if err != nil {
		s.writeServiceError(r, w, err, "failed to list public posts")
		return
	}

	writeOK(w, http.StatusOK, toAPIPosts(posts))
}

func (s server) getPublicPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/public/{shareToken} Public GetPublicPost
	//
	// Get published post by its share token. Records a view unless skipView is set.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: shareToken
	//   in: path
	//   required: true
	//   type: string
	// - name: skipView
	//   in: query
	//   required: false
	//   type: boolean
	// responses:
	//   '200':
	//     description: Post
	//     schema:
	//       "$ref": "#/definitions/Post"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	token := chi.URLParam(r, "shareToken")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid share token")
		return
	}

	skipView, _ := strconv.ParseBool(r.URL.Query().Get("skipView"))

	post, err := s.s.GetPublicPost(r.Context(), token, skipView)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to get public post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post))
}

func (s server) likePost(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "shareToken")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid share token")
		return
	}

	post, err := s.s.Like(r.Context(), token, s.actorFromRequest(r))
	if err != nil {
		s.writeServiceError(r, w, err, "failed to like post")
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(post).Likes)
}

func (s server) commentPost(w http.ResponseWriter, r *http.Request) {
	s.addComment(w, r, false)
}

func (s server) replyComment(w http.ResponseWriter, r *http.Request) {
	s.addComment(w, r, true)
}

func (s server) addComment(w http.ResponseWriter, r *http.Request, reply bool) {
	token := chi.URLParam(r, "shareToken")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid share token")
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if reply && req.ParentCommentID == nil {
		writeError(w, http.StatusBadRequest, "parentCommentId is required")
		return
	}
	if !reply {
		req.ParentCommentID = nil
	}

	actor := s.actorFromRequest(r)
	if actor.UserID == nil && req.GuestIdentifier != "" {
		actor.GuestID = req.GuestIdentifier
	}

	post, err := s.s.AddComment(r.Context(), token, actor, req.GuestName, req.Content, req.ParentCommentID)
	if err != nil {
		s.writeServiceError(r, w, err, "failed to add comment")
		return
	}

	writeOK(w, http.StatusCreated, toAPIPost(post).Comments)
}

// actorFromRequest identifies the caller, a registered user by its bearer
// token, anybody else is a guest keyed by client ip.
func (s server) actorFromRequest(r *http.Request) service.Actor {
	if id, err := auth.FromRequest(s.v, r); err == nil {
		return service.Actor{UserID: &id}
	}

	return service.Actor{GuestID: realip.FromRequest(r)}
}

func (s server) ownedPostID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	owner, ok := auth.OwnerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return 0, 0, false
	}

	return owner, id, true
}

func (s server) writeServiceError(r *http.Request, w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, dashboard.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrCommentsDisabled):
		writeError(w, http.StatusForbidden, "comments are disabled")
	default:
		logrus.WithError(err).WithField("url", r.URL.String()).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// nolint: gocyclo
func extractDashboardParamsFromQuery(q url.Values) (*dashboard.Params, error) {
	out := dashboard.Params{
		Page:     0,
		PageSize: defaultPageSize,
		SortBy:   dashboard.RecentSortType,
	}

	switch sortBy := dashboard.SortType(q.Get("sortBy")); sortBy {
	case dashboard.RecentSortType, dashboard.TopViewsSortType, dashboard.TopLikesSortType, dashboard.TopCommentsSortType:
		out.SortBy = sortBy
	case "":
	default:
		return nil, fmt.Errorf("%w: invalid sortBy", errInvalidRequest)
	}

	out.Search = q.Get("search")

	if s := q.Get("status"); s != "" {
		v := entities.Status(s)
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: invalid status", errInvalidRequest)
		}
		out.Status = &v
	}

	if s := q.Get("fromDate"); s != "" {
		v, err := time.Parse(entities.ViewsDayFormat, s)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse fromDate", errInvalidRequest)
		}
		out.From = &v
	}

	if s := q.Get("toDate"); s != "" {
		v, err := time.Parse(entities.ViewsDayFormat, s)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse toDate", errInvalidRequest)
		}
		// the bound is inclusive and day-precision, widen to the end of the day
		v = v.Add(24*time.Hour - time.Nanosecond)
		out.To = &v
	}

	if s := q.Get("favoritesOnly"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse favoritesOnly", errInvalidRequest)
		}
		out.FavoritesOnly = v
	}

	if s := q.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: invalid page", errInvalidRequest)
		}
		out.Page = v
	}

	if s := q.Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: invalid size", errInvalidRequest)
		}
		if v > maxPageSize {
			return nil, fmt.Errorf("%w: size is too big", errInvalidRequest)
		}
		out.PageSize = v
	}

	return &out, nil
}

func writeOK(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	b, _ := json.Marshal(Error{Error: msg})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
