package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/isdelr/quill-be/internal/validation"
)

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	CreateComment(ctx context.Context, actor models.Identity, postID, content string) (models.Comment, error)
	ListComments(ctx context.Context, postID string, page models.Page) ([]models.Comment, int, error)
}

// CommentService provides business logic for comments.
type CommentService struct {
	db     *sql.DB
	events EventServiceProvider
	feed   Publisher
}

// NewCommentService creates a new CommentService. feed may be nil.
func NewCommentService(db *sql.DB, events EventServiceProvider, feed Publisher) *CommentService {
	return &CommentService{db: db, events: events, feed: feed}
}

func scanComment(scanner interface{ Scan(...interface{}) error }) (models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(&c.ID, &c.PostID, &c.Content, &c.CreatedBy, &c.CreatedByName, &c.CreatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

// CreateComment stores a comment authored by actor on an existing post.
func (s *CommentService) CreateComment(ctx context.Context, actor models.Identity, postID, content string) (models.Comment, error) {
	verr := &apperr.ValidationError{}
	if postID == "" {
		verr.Add("post", "post cannot be empty")
	}
	if err := validation.ValidateContent(content); err != nil {
		verr.Add("content", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return models.Comment{}, err
	}

	if _, err := getPost(ctx, s.db, postID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Comment{}, apperr.NewValidation("post", fmt.Sprintf("invalid post %q - object does not exist", postID))
		}
		return models.Comment{}, err
	}

	comment := models.Comment{
		ID:            uuid.New().String(),
		PostID:        postID,
		Content:       content,
		CreatedBy:     actor.UserID,
		CreatedByName: actor.Username,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO comments (id, post_id, content, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		comment.ID, comment.PostID, comment.Content, comment.CreatedBy, comment.CreatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to insert comment: %w", err)
	}

	RecordEvent(ctx, s.events, EventCommentCreate, "info", fmt.Sprintf("Comment added to post %s.", postID), actor.UserID)
	if s.feed != nil {
		s.feed.Publish(postID, ActionCommentCreated, comment)
	}
	return comment, nil
}

// ListComments returns one page of a post's comments, oldest first by default.
func (s *CommentService) ListComments(ctx context.Context, postID string, page models.Page) ([]models.Comment, int, error) {
	page, err := NormalizePage(page, models.OrderOldest)
	if err != nil {
		return nil, 0, err
	}
	if _, err := getPost(ctx, s.db, postID); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE post_id = ?", postID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	query := `
		SELECT c.id, c.post_id, c.content, c.created_by, u.username, c.created_at
		FROM comments c JOIN users u ON u.id = c.created_by
		WHERE c.post_id = ?
		ORDER BY ` + orderClause("c", page.Order) + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, postID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	return comments, total, nil
}
