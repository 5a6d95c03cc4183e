package services

import (
	"context"
	"errors"
	"testing"

	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_CreateComment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	feed := &recordingPublisher{}
	events := NewEventService(db)
	posts := NewPostService(db, nil, nil)
	s := NewCommentService(db, events, feed)

	author := createTestIdentity(t, db, "a", models.RoleUser)
	commenter := createTestIdentity(t, db, "b", models.RoleUser)
	post, err := posts.CreatePost(ctx, author, "T", "C")
	require.NoError(t, err)

	comment, err := s.CreateComment(ctx, commenter, post.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, commenter.UserID, comment.CreatedBy)
	assert.Equal(t, "b", comment.CreatedByName)

	msgs := feed.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, post.ID, msgs[0].topic)
	assert.Equal(t, ActionCommentCreated, msgs[0].action)
	assert.Contains(t, eventTypes(t, events), EventCommentCreate)
}

func TestCommentService_CreateComment_Invalid(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := NewCommentService(db, nil, nil)
	actor := createTestIdentity(t, db, "a", models.RoleUser)

	tests := []struct {
		name   string
		postID string
		body   string
		fields []string
	}{
		{"missing fields", "", "", []string{"post", "content"}},
		{"unknown post", "00000000-0000-0000-0000-000000000000", "hi", []string{"post"}},
		{"malformed post id", "nope", "hi", []string{"post"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateComment(ctx, actor, tt.postID, tt.body)
			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
	assert.Zero(t, countRows(t, db, "SELECT COUNT(*) FROM comments"))
}

func TestCommentService_ListComments(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	posts := NewPostService(db, nil, nil)
	s := NewCommentService(db, nil, nil)
	actor := createTestIdentity(t, db, "a", models.RoleUser)

	post, err := posts.CreatePost(ctx, actor, "T", "C")
	require.NoError(t, err)
	other, err := posts.CreatePost(ctx, actor, "T2", "C2")
	require.NoError(t, err)

	first, err := s.CreateComment(ctx, actor, post.ID, "first")
	require.NoError(t, err)
	second, err := s.CreateComment(ctx, actor, post.ID, "second")
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, actor, other.ID, "elsewhere")
	require.NoError(t, err)

	comments, total, err := s.ListComments(ctx, post.ID, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)

	newest, _, err := s.ListComments(ctx, post.ID, models.Page{Order: models.OrderNewest, Limit: 1})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, second.ID, newest[0].ID)

	_, _, err = s.ListComments(ctx, "00000000-0000-0000-0000-000000000000", models.Page{})
	assert.ErrorIs(t, err, ErrPostNotFound)
}
