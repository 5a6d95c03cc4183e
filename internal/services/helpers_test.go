package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/quill-be/internal/database"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestUserService(db *sql.DB, events EventServiceProvider) *UserService {
	s := NewUserService(db, events)
	s.hashCost = bcrypt.MinCost
	return s
}

// createTestIdentity registers a user with the given role and returns its identity.
func createTestIdentity(t *testing.T, db *sql.DB, username string, role models.Role) models.Identity {
	t.Helper()
	ctx := context.Background()
	user, err := newTestUserService(db, nil).insertUser(ctx, username, username+"@example.com", "password", role)
	require.NoError(t, err)
	return models.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}

type published struct {
	topic   string
	action  string
	payload interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(topic, action string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic: topic, action: action, payload: payload})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

func countRows(t *testing.T, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func eventTypes(t *testing.T, events *EventService) []string {
	t.Helper()
	recent, err := events.GetRecentEvents(context.Background(), 100)
	require.NoError(t, err)
	types := make([]string, 0, len(recent))
	for _, e := range recent {
		types = append(types, e.Type)
	}
	return types
}
