package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/services"
)

// TotalCountHeader carries the unpaginated size of a listing.
const TotalCountHeader = "X-Total-Count"

// PostHandler handles HTTP requests for posts and their comments.
type PostHandler struct {
	posts    services.PostServiceProvider
	comments services.CommentServiceProvider
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts services.PostServiceProvider, comments services.CommentServiceProvider) *PostHandler {
	return &PostHandler{posts: posts, comments: comments}
}

// PostPayload is the body of a create post request. Any creator field sent
// by the client is ignored.
type PostPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// List handles listing posts with explicit pagination and ordering.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	posts, total, err := h.posts.ListPosts(r.Context(), page)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
	respond.JSON(w, http.StatusOK, posts)
}

// Get handles retrieving a single post.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPostByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Create handles creating a post owned by the authenticated user.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var payload PostPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), identity, payload.Title, payload.Content)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, post)
}

// Delete handles deleting a post. Only admins and the post's creator may delete it.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.posts.DeletePost(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Post deleted successfully")
}

// ListComments handles listing a post's comments, oldest first by default.
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	comments, total, err := h.comments.ListComments(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
	respond.JSON(w, http.StatusOK, comments)
}
