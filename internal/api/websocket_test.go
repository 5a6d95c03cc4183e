package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedMessage struct {
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload"`
}

func dialFeed(t *testing.T, srv *httptest.Server, access string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := gorilla.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + access}})
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFeed(t *testing.T, conn *gorilla.Conn) feedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg feedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestLiveFeed(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	author := a.session(t, "author", models.RoleUser)
	reader := a.session(t, "reader", models.RoleUser)

	conn := dialFeed(t, srv, reader.Access)
	unsubscribed := dialFeed(t, srv, author.Access)
	assert.Eventually(t, func() bool { return a.hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	post := a.createPost(t, author.Access, "live")
	msg := readFeed(t, conn)
	assert.Equal(t, "post_created", msg.Action)
	assert.Equal(t, post.ID, msg.Payload["id"])
	assert.Equal(t, "author", msg.Payload["created_by"])
	assert.Equal(t, "post_created", readFeed(t, unsubscribed).Action)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "subscribe", "payload": map[string]string{"post": post.ID}}))
	msg = readFeed(t, conn)
	assert.Equal(t, "subscribed", msg.Action)
	assert.Equal(t, post.ID, msg.Payload["post"])

	rec := a.do(t, http.MethodPost, "/api/v1/comments", author.Access, map[string]string{"post": post.ID, "content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	msg = readFeed(t, conn)
	assert.Equal(t, "comment_created", msg.Action)
	assert.Equal(t, "hello", msg.Payload["content"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "subscribe", "payload": map[string]string{"post": "nope"}}))
	msg = readFeed(t, conn)
	assert.Equal(t, "error", msg.Action)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "dance"}))
	msg = readFeed(t, conn)
	assert.Equal(t, "error", msg.Action)
	assert.Equal(t, "Unknown action: dance", msg.Payload["message"])

	rec = a.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, author.Access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msg = readFeed(t, conn)
	assert.Equal(t, "post_deleted", msg.Action)
	assert.Equal(t, post.ID, msg.Payload["id"])

	// Comments only reach subscribers of the post.
	assert.Equal(t, "post_deleted", readFeed(t, unsubscribed).Action)
}

func TestLiveFeed_ClosedAfterLogout(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	author := a.session(t, "author", models.RoleUser)
	reader := a.session(t, "reader", models.RoleUser)

	conn := dialFeed(t, srv, reader.Access)
	assert.Eventually(t, func() bool { return a.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := a.do(t, http.MethodPost, "/api/v1/auth/logout", reader.Access, map[string]string{"refresh": reader.Refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/v1/posts", reader.Access, nil).Code)
	assert.Eventually(t, func() bool { return a.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	a.createPost(t, author.Access, "after logout")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg feedMessage
	err := conn.ReadJSON(&msg)
	require.Error(t, err, "revoked session received %q", msg.Action)
	assert.True(t, gorilla.IsCloseError(err, gorilla.CloseNoStatusReceived, gorilla.CloseNormalClosure), "got %v", err)
}

func TestLiveFeed_RequiresToken(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveFeed_RejectsForeignOrigin(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()
	pair := a.session(t, "a", models.RoleUser)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	_, resp, err := gorilla.DefaultDialer.Dial(url, http.Header{
		"Authorization": {"Bearer " + pair.Access},
		"Origin":        {"https://evil.example"},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
