package handlers

import (
	"net/http"

	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/services"
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	service services.CommentServiceProvider
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider) *CommentHandler {
	return &CommentHandler{service: service}
}

// CommentPayload is the body of a create comment request.
type CommentPayload struct {
	Post    string `json:"post"`
	Content string `json:"content"`
}

// Create handles adding a comment to a post.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var payload CommentPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	comment, err := h.service.CreateComment(r.Context(), identity, payload.Post, payload.Content)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, comment)
}
