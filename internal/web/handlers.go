// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/authz"
	"github.com/plumehq/plume/internal/cache"
	"github.com/plumehq/plume/internal/logging"
	"github.com/plumehq/plume/internal/media"
	"github.com/plumehq/plume/internal/metrics"
	"github.com/plumehq/plume/internal/models"
	"github.com/plumehq/plume/internal/pagination"
	"github.com/plumehq/plume/internal/store"
)

// Handlers serves the HTML application.
type Handlers struct {
	store    store.Store
	sessions *auth.SessionMiddleware
	cache    *cache.Cache
	media    *media.Storage
	renderer *Renderer
	pageSize int
	feedTTL  time.Duration
}

// NewHandlers wires the handler set.
func NewHandlers(st store.Store, sessions *auth.SessionMiddleware, feedCache *cache.Cache, mediaStore *media.Storage, renderer *Renderer, pageSize int, feedTTL time.Duration) *Handlers {
	if pageSize < 1 {
		pageSize = pagination.DefaultPageSize
	}
	return &Handlers{
		store:    st,
		sessions: sessions,
		cache:    feedCache,
		media:    mediaStore,
		renderer: renderer,
		pageSize: pageSize,
		feedTTL:  feedTTL,
	}
}

// View data passed to templates. Every page carries the current user for
// the navigation bar.

type listData struct {
	User *auth.CurrentUser
	Page pagination.Page[models.Post]
}

type groupData struct {
	User  *auth.CurrentUser
	Group *models.Group
	Page  pagination.Page[models.Post]
}

type profileData struct {
	User      *auth.CurrentUser
	Author    *models.User
	Following bool
	Page      pagination.Page[models.Post]
}

type detailData struct {
	User     *auth.CurrentUser
	Post     *models.Post
	Comments []models.Comment
	CanEdit  bool
}

type postFormData struct {
	User    *auth.CurrentUser
	Editing bool
	Text    string
	GroupID int64
	Groups  []models.Group
	Errors  map[string]string
}

// fetchPage runs a windowed list query, clamping out-of-range page
// numbers to the last page and refetching when the clamp moved the
// window.
func (h *Handlers) fetchPage(number int, fetch func(limit, offset int) ([]models.Post, int, error)) (pagination.Page[models.Post], error) {
	items, total, err := fetch(h.pageSize, pagination.Offset(number, h.pageSize))
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}

	if clamped := pagination.Clamp(number, h.pageSize, total); clamped != number {
		number = clamped
		items, total, err = fetch(h.pageSize, pagination.Offset(number, h.pageSize))
		if err != nil {
			return pagination.Page[models.Post]{}, err
		}
	}

	return pagination.New(items, number, h.pageSize, total), nil
}

// Index renders the front page: all posts, newest first.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.fetchPage(pagination.PageNumber(r), func(limit, offset int) ([]models.Post, int, error) {
		return h.store.Posts(r.Context(), limit, offset)
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "index.html", listData{
		User: auth.UserFromContext(r.Context()),
		Page: page,
	})
}

// GroupPosts renders a group's page.
func (h *Handlers) GroupPosts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	group, err := h.store.GroupBySlug(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	page, err := h.fetchPage(pagination.PageNumber(r), func(limit, offset int) ([]models.Post, int, error) {
		return h.store.PostsByGroup(r.Context(), group.ID, limit, offset)
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "group_posts.html", groupData{
		User:  auth.UserFromContext(r.Context()),
		Group: group,
		Page:  page,
	})
}

// Profile renders an author's page with their posts.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	author, err := h.store.UserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	page, err := h.fetchPage(pagination.PageNumber(r), func(limit, offset int) ([]models.Post, int, error) {
		return h.store.PostsByAuthor(r.Context(), author.ID, limit, offset)
	})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	following := false
	if user != nil && user.ID != author.ID {
		if following, err = h.store.FollowExists(r.Context(), user.ID, author.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
	}

	h.renderer.Render(w, r, http.StatusOK, "profile.html", profileData{
		User:      user,
		Author:    author,
		Following: following,
		Page:      page,
	})
}

// PostDetail renders a single post with its comments.
func (h *Handlers) PostDetail(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}

	comments, err := h.store.CommentsByPost(r.Context(), post.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	canEdit := user != nil && authz.CanEditPost(user.ID, post).Allowed()

	h.renderer.Render(w, r, http.StatusOK, "post_detail.html", detailData{
		User:     user,
		Post:     post,
		Comments: comments,
		CanEdit:  canEdit,
	})
}

// PostCreateForm renders the empty create form.
func (h *Handlers) PostCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderPostForm(w, r, http.StatusOK, postFormData{
		User: auth.UserFromContext(r.Context()),
	})
}

// PostCreate handles create form submission.
func (h *Handlers) PostCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	form, imagePath, fieldErrors := h.parsePostForm(w, r)
	if fieldErrors != nil {
		h.renderPostForm(w, r, http.StatusOK, postFormData{
			User:    user,
			Text:    form.Text,
			GroupID: form.GroupID,
			Errors:  fieldErrors,
		})
		return
	}

	post := &models.Post{
		Text:     form.Text,
		Image:    imagePath,
		AuthorID: user.ID,
	}
	if form.GroupID != 0 {
		post.GroupID = &form.GroupID
	}
	if err := h.store.CreatePost(r.Context(), post); err != nil {
		h.serverError(w, r, err)
		return
	}

	metrics.PostsCreated.Inc()
	h.invalidateFollowerFeeds(r, user.ID)
	http.Redirect(w, r, "/profile/"+user.Username+"/", http.StatusFound)
}

// PostEditForm renders the edit form pre-filled with the post. Non-authors
// are sent back to the post page.
func (h *Handlers) PostEditForm(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}

	user := auth.UserFromContext(r.Context())
	if decision := authz.CanEditPost(user.ID, post); !decision.Allowed() {
		logging.Ctx(r.Context()).Debug().Str("reason", decision.Reason()).Int64("post_id", post.ID).Msg("edit denied")
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}

	var groupID int64
	if post.GroupID != nil {
		groupID = *post.GroupID
	}
	h.renderPostForm(w, r, http.StatusOK, postFormData{
		User:    user,
		Editing: true,
		Text:    post.Text,
		GroupID: groupID,
	})
}

// PostEdit handles edit form submission.
func (h *Handlers) PostEdit(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}

	user := auth.UserFromContext(r.Context())
	if decision := authz.CanEditPost(user.ID, post); !decision.Allowed() {
		logging.Ctx(r.Context()).Debug().Str("reason", decision.Reason()).Int64("post_id", post.ID).Msg("edit denied")
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}

	form, imagePath, fieldErrors := h.parsePostForm(w, r)
	if fieldErrors != nil {
		h.renderPostForm(w, r, http.StatusOK, postFormData{
			User:    user,
			Editing: true,
			Text:    form.Text,
			GroupID: form.GroupID,
			Errors:  fieldErrors,
		})
		return
	}

	post.Text = form.Text
	post.GroupID = nil
	if form.GroupID != 0 {
		post.GroupID = &form.GroupID
	}
	if imagePath != "" {
		post.Image = imagePath
	}
	if err := h.store.UpdatePost(r.Context(), post); err != nil {
		h.serverError(w, r, err)
		return
	}

	metrics.PostsEdited.Inc()
	h.invalidateFollowerFeeds(r, user.ID)
	http.Redirect(w, r, postURL(post.ID), http.StatusFound)
}

// AddComment handles comment submission. An invalid comment redirects
// back to the post without an error page, matching the form's inline
// placement on the post page.
func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	post, ok := h.postFromURL(w, r)
	if !ok {
		return
	}

	form := CommentForm{Text: r.PostFormValue("text")}
	if fieldErrors := validateForm(form); fieldErrors != nil {
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}

	user := auth.UserFromContext(r.Context())
	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		Text:     form.Text,
	}
	if err := h.store.CreateComment(r.Context(), comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}

	metrics.CommentsCreated.Inc()
	http.Redirect(w, r, postURL(post.ID), http.StatusFound)
}

// FollowIndex renders the feed of posts from followed authors. The full
// feed is cached per user and paginated in memory; writers invalidate
// exactly the affected keys.
func (h *Handlers) FollowIndex(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	key := cache.FeedKey(user.ID)

	var posts []models.Post
	cached, ok := h.cache.Get(key)
	if ok {
		posts, ok = cached.([]models.Post)
	}
	if ok {
		metrics.FeedCacheHits.Inc()
	} else {
		metrics.FeedCacheMisses.Inc()
		var err error
		posts, err = h.store.PostsByFollowed(r.Context(), user.ID)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		h.cache.SetWithTTL(key, posts, h.feedTTL)
	}

	page := pagination.Paginate(posts, pagination.PageNumber(r), h.pageSize)
	h.renderer.Render(w, r, http.StatusOK, "follow.html", listData{
		User: user,
		Page: page,
	})
}

// ProfileFollow follows the author. Following yourself or someone you
// already follow changes nothing.
func (h *Handlers) ProfileFollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	author, err := h.store.UserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	if authz.CanFollow(user.ID, author.ID).Allowed() {
		if err := h.store.CreateFollow(r.Context(), user.ID, author.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
		metrics.RecordFollowChange(true)
		h.cache.Delete(cache.FeedKey(user.ID))
	}

	http.Redirect(w, r, "/profile/"+author.Username+"/", http.StatusFound)
}

// ProfileUnfollow removes the follow edge. Unfollowing someone you do not
// follow changes nothing.
func (h *Handlers) ProfileUnfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	author, err := h.store.UserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	if err := h.store.DeleteFollow(r.Context(), user.ID, author.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	metrics.RecordFollowChange(false)
	h.cache.Delete(cache.FeedKey(user.ID))

	http.Redirect(w, r, "/profile/"+author.Username+"/", http.StatusFound)
}

// NotFound renders the custom 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusNotFound, "not_found.html", listData{
		User: auth.UserFromContext(r.Context()),
	})
}

// MethodNotAllowed renders the error page instead of chi's plain-text
// default when a known path is hit with the wrong method.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusMethodNotAllowed, "not_found.html", listData{
		User: auth.UserFromContext(r.Context()),
	})
}

// renderPostForm fills in the group choices and renders the create/edit
// form.
func (h *Handlers) renderPostForm(w http.ResponseWriter, r *http.Request, status int, data postFormData) {
	groups, err := h.store.Groups(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data.Groups = groups
	h.renderer.Render(w, r, status, "post_form.html", data)
}

// parsePostForm reads the multipart create/edit submission. Returns the
// parsed form, the stored image path ("" when no upload) and field errors
// (nil when valid).
func (h *Handlers) parsePostForm(w http.ResponseWriter, r *http.Request) (PostForm, string, map[string]string) {
	var form PostForm

	if err := r.ParseMultipartForm(h.media.MaxUploadSize()); err != nil {
		return form, "", map[string]string{"form": "Invalid form submission."}
	}

	form.Text = r.PostFormValue("text")
	groupID, ok := parseGroupID(r.PostFormValue("group"))
	if !ok {
		return form, "", map[string]string{"group": "Unknown group."}
	}
	form.GroupID = groupID

	if fieldErrors := validateForm(form); fieldErrors != nil {
		return form, "", fieldErrors
	}

	if form.GroupID != 0 {
		if _, err := h.store.GroupByID(r.Context(), form.GroupID); err != nil {
			return form, "", map[string]string{"group": "Unknown group."}
		}
	}

	imagePath := ""
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// No upload, keep going.
	case err != nil:
		return form, "", map[string]string{"image": "Could not read the uploaded file."}
	default:
		defer file.Close()
		imagePath, err = h.media.SavePost(header.Filename, file)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("image upload rejected")
			return form, "", map[string]string{"image": "Upload a GIF, JPEG or PNG image."}
		}
	}

	return form, imagePath, nil
}

// invalidateFollowerFeeds drops the cached feeds of everyone following
// the author, so their next feed view includes the write.
func (h *Handlers) invalidateFollowerFeeds(r *http.Request, authorID int64) {
	followerIDs, err := h.store.FollowerIDs(r.Context(), authorID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("author_id", authorID).Msg("failed to list followers for cache invalidation")
		return
	}
	if len(followerIDs) == 0 {
		return
	}

	keys := make([]string, len(followerIDs))
	for i, id := range followerIDs {
		keys[i] = cache.FeedKey(id)
	}
	h.cache.DeleteMany(keys)
	metrics.FeedCacheInvalidations.Add(float64(len(keys)))
}

// postFromURL loads the post named in the URL, rendering 404 when the ID
// is malformed or unknown.
func (h *Handlers) postFromURL(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := postIDFromURL(r)
	if err != nil {
		h.NotFound(w, r)
		return nil, false
	}

	post, err := h.store.PostByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		h.serverError(w, r, err)
		return nil, false
	}
	return post, true
}

func postIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func postURL(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
