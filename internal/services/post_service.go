package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/isdelr/quill-be/internal/validation"
	"github.com/isdelr/quill-be/internal/websocket"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Live feed actions.
const (
	ActionPostCreated    = "post_created"
	ActionPostDeleted    = "post_deleted"
	ActionCommentCreated = "comment_created"
)

// Publisher pushes content changes to live subscribers. Post events go to
// websocket.GlobalTopic, comment events to the post's ID.
type Publisher interface {
	Publish(topic, action string, payload interface{})
}

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	ListPosts(ctx context.Context, page models.Page) ([]models.Post, int, error)
	GetPostByID(ctx context.Context, id string) (models.Post, error)
	CreatePost(ctx context.Context, actor models.Identity, title, content string) (models.Post, error)
	DeletePost(ctx context.Context, actor models.Identity, id string) error
}

// PostService provides business logic for posts.
type PostService struct {
	db     *sql.DB
	events EventServiceProvider
	feed   Publisher
}

// NewPostService creates a new PostService. feed may be nil.
func NewPostService(db *sql.DB, events EventServiceProvider, feed Publisher) *PostService {
	return &PostService{db: db, events: events, feed: feed}
}

// NormalizePage applies defaults to a page request and rejects invalid values.
func NormalizePage(page models.Page, defaultOrder models.Order) (models.Page, error) {
	verr := &apperr.ValidationError{}
	switch {
	case page.Limit == 0:
		page.Limit = DefaultPageSize
	case page.Limit < 0 || page.Limit > MaxPageSize:
		verr.Add("limit", fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
	}
	if page.Offset < 0 {
		verr.Add("offset", "offset must not be negative")
	}
	switch page.Order {
	case "":
		page.Order = defaultOrder
	case models.OrderNewest, models.OrderOldest:
	default:
		verr.Add("order", "order must be one of: newest, oldest")
	}
	return page, verr.OrNil()
}

// orderClause orders rows of the aliased table by creation time, tie-broken by id.
func orderClause(alias string, order models.Order) string {
	if order == models.OrderOldest {
		return fmt.Sprintf("%[1]s.created_at ASC, %[1]s.id ASC", alias)
	}
	return fmt.Sprintf("%[1]s.created_at DESC, %[1]s.id DESC", alias)
}

const postSelect = `
	SELECT p.id, p.title, p.content, p.created_by, u.username, p.created_at
	FROM posts p JOIN users u ON u.id = p.created_by`

func scanPost(scanner interface{ Scan(...interface{}) error }) (models.Post, error) {
	var post models.Post
	err := scanner.Scan(&post.ID, &post.Title, &post.Content, &post.CreatedBy, &post.CreatedByName, &post.CreatedAt)
	post.CreatedAt = post.CreatedAt.UTC()
	return post, err
}

// ListPosts returns one page of posts and the total number of posts.
func (s *PostService) ListPosts(ctx context.Context, page models.Page) ([]models.Post, int, error) {
	page, err := NormalizePage(page, models.OrderNewest)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query := postSelect + " ORDER BY " + orderClause("p", page.Order) + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	return posts, total, nil
}

// GetPostByID retrieves a single post. Malformed IDs are reported as not found.
func (s *PostService) GetPostByID(ctx context.Context, id string) (models.Post, error) {
	return getPost(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getPost(ctx context.Context, q queryRower, id string) (models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Post{}, fmt.Errorf("post %q: %w", id, ErrPostNotFound)
	}
	post, err := scanPost(q.QueryRowContext(ctx, postSelect+" WHERE p.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, fmt.Errorf("post %s: %w", id, ErrPostNotFound)
		}
		return models.Post{}, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// CreatePost stores a post authored by actor.
func (s *PostService) CreatePost(ctx context.Context, actor models.Identity, title, content string) (models.Post, error) {
	title = strings.TrimSpace(title)

	verr := &apperr.ValidationError{}
	if err := validation.ValidateTitle(title); err != nil {
		verr.Add("title", err.Error())
	}
	if err := validation.ValidateContent(content); err != nil {
		verr.Add("content", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return models.Post{}, err
	}

	post := models.Post{
		ID:            uuid.New().String(),
		Title:         title,
		Content:       content,
		CreatedBy:     actor.UserID,
		CreatedByName: actor.Username,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (id, title, content, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		post.ID, post.Title, post.Content, post.CreatedBy, post.CreatedAt)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}

	RecordEvent(ctx, s.events, EventPostCreate, "info", fmt.Sprintf("Post '%s' created.", post.Title), actor.UserID)
	if s.feed != nil {
		s.feed.Publish(websocket.GlobalTopic, ActionPostCreated, post)
	}
	return post, nil
}

// DeletePost removes a post if actor is an admin or the post's creator.
func (s *PostService) DeletePost(ctx context.Context, actor models.Identity, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	post, err := getPost(ctx, tx, id)
	if err != nil {
		return err
	}
	if !actor.CanDelete(post.CreatedBy) {
		return fmt.Errorf("user %s cannot delete post %s: %w", actor.UserID, post.ID, ErrDeleteForbidden)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", post.ID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post deletion: %w", err)
	}

	RecordEvent(ctx, s.events, EventPostDelete, "warn", fmt.Sprintf("Post '%s' was deleted.", post.Title), actor.UserID)
	if s.feed != nil {
		s.feed.Publish(websocket.GlobalTopic, ActionPostDeleted, map[string]string{"id": post.ID})
	}
	return nil
}
