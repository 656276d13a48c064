package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comigor/leo-go/internal/auth"
	"github.com/comigor/leo-go/internal/chat"
	"github.com/comigor/leo-go/internal/clock"
	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/history"
	"github.com/comigor/leo-go/internal/reply"
	"github.com/comigor/leo-go/internal/session"
)

type stubReply struct {
	AskFunc func(ctx context.Context, prompts []reply.Prompt) (string, error)
}

func (s *stubReply) Ask(ctx context.Context, prompts []reply.Prompt) (string, error) {
	if s.AskFunc != nil {
		return s.AskFunc(ctx, prompts)
	}
	return reply.DegradedText, nil
}

type blockingStore struct {
	history.Store
	release chan struct{}
}

func (b *blockingStore) Load(ctx context.Context, userID string) ([]chat.Turn, error) {
	<-b.release
	return b.Store.Load(ctx, userID)
}

type testEnv struct {
	handler  http.Handler
	gate     *auth.Gate
	sessions *session.Registry
	store    *history.MemoryStore
}

func newEnv(t *testing.T, replies reply.Service, store history.Store) *testEnv {
	t.Helper()
	mem := history.NewMemoryStore()
	if store == nil {
		store = mem
	}
	if replies == nil {
		replies = &stubReply{}
	}
	authCfg := config.AuthConfig{
		Users:      []config.UserConfig{{Username: "alice", Password: "secret", UserID: "u1"}},
		SessionTTL: time.Hour,
		CookieName: "leo_session",
	}
	gate := auth.New(authCfg.Users, authCfg.SessionTTL)
	sessions := session.NewRegistry(session.Deps{Store: store, Replies: replies, Clock: clock.Fixed("oct 14, 2026, 03:04 pm")})
	t.Cleanup(sessions.CloseAll)
	return &testEnv{
		handler:  NewRouter(Options{Gate: gate, Sessions: sessions, Auth: authCfg}),
		gate:     gate,
		sessions: sessions,
		store:    mem,
	}
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"alice"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := e.do(req, nil)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	require.Equal(t, "/", resp.Header().Get("Location"))
	for _, c := range resp.Result().Cookies() {
		if c.Name == "leo_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (e *testEnv) state(t *testing.T, cookie *http.Cookie) session.Snapshot {
	t.Helper()
	resp := e.do(httptest.NewRequest(http.MethodGet, "/api/state", nil), cookie)
	require.Equal(t, http.StatusOK, resp.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	return snap
}

func (e *testEnv) waitReady(t *testing.T, cookie *http.Cookie) {
	t.Helper()
	require.Eventually(t, func() bool { return e.state(t, cookie).Ready }, time.Second, time.Millisecond)
}

func postJSON(path string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginPage(t *testing.T) {
	env := newEnv(t, nil, nil)
	resp := env.do(httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `name="password"`)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newEnv(t, nil, nil)
	form := url.Values{"username": {"alice"}, "password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := env.do(req, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), "Invalid username or password.")
	require.Equal(t, 0, env.sessions.Len())
}

func TestRequiresSignIn(t *testing.T) {
	env := newEnv(t, nil, nil)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	require.Equal(t, "/login", resp.Header().Get("Location"))

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/state", nil), nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/state", nil), &http.Cookie{Name: "leo_session", Value: "forged"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestChatPage_RendersGreeting(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	resp := env.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	require.Contains(t, body, `class="message assistant"`)
	require.Contains(t, body, "Hi! I&#39;m Leo")
	require.Contains(t, body, `class="hidden"`)
	require.Contains(t, body, `<span class="time">oct 14, 2026, 03:04 pm</span>`)
}

func TestSend_API(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	resp := env.do(postJSON("/api/messages", map[string]string{"message": "hello"}), cookie)
	require.Equal(t, http.StatusOK, resp.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	require.Len(t, snap.Entries, 3)
	require.Equal(t, chat.Entry{Sender: chat.SenderUser, Text: "hello", Time: "oct 14, 2026, 03:04 pm"}, snap.Entries[1])
	require.Equal(t, reply.DegradedText, snap.Entries[2].Text)
	require.Empty(t, snap.Composer)
	require.False(t, snap.Busy)

	turns, err := env.store.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
}

func TestSend_ComposerThenSend(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	req := httptest.NewRequest(http.MethodPut, "/api/composer", strings.NewReader(`{"text":"draft"}`))
	resp := env.do(req, cookie)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "draft", env.state(t, cookie).Composer)

	resp = env.do(httptest.NewRequest(http.MethodPost, "/api/messages", nil), cookie)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "draft", env.state(t, cookie).Entries[1].Text)
}

func TestSend_Empty(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	resp := env.do(postJSON("/api/messages", map[string]string{"message": "   "}), cookie)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Len(t, env.state(t, cookie).Entries, 1)
}

func TestSend_InvalidBody(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)

	resp := env.do(httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{")), cookie)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSend_NotReady(t *testing.T) {
	store := &blockingStore{Store: history.NewMemoryStore(), release: make(chan struct{})}
	env := newEnv(t, nil, store)
	cookie := env.login(t)
	defer close(store.release)

	resp := env.do(postJSON("/api/messages", map[string]string{"message": "hi"}), cookie)
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestSend_Busy(t *testing.T) {
	release := make(chan struct{})
	replies := &stubReply{AskFunc: func(ctx context.Context, _ []reply.Prompt) (string, error) {
		<-release
		return "ok", nil
	}}
	env := newEnv(t, replies, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	done := make(chan int)
	go func() {
		resp := env.do(postJSON("/api/messages", map[string]string{"message": "first"}), cookie)
		done <- resp.Code
	}()
	require.Eventually(t, func() bool { return env.state(t, cookie).Busy }, time.Second, time.Millisecond)

	snap := env.state(t, cookie)
	require.True(t, snap.ComposerDisabled())
	last := snap.Entries[len(snap.Entries)-1]
	require.True(t, last.IsTyping)
	require.Equal(t, chat.TypingText, last.Text)

	resp := env.do(postJSON("/api/messages", map[string]string{"message": "second"}), cookie)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = env.do(httptest.NewRequest(http.MethodPut, "/api/composer", strings.NewReader(`{"text":"sneaky"}`)), cookie)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "first", env.state(t, cookie).Composer)

	form := url.Values{"message": {"from the form"}}
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusConflict, env.do(req, cookie).Code)

	// The typing row is rendered last and without a timestamp.
	page := env.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie).Body.String()
	typing := strings.Index(page, `class="message assistant typing"`)
	require.Greater(t, typing, 0)
	row := page[typing:]
	row = row[:strings.Index(row, "</div>")]
	require.Contains(t, row, chat.TypingText)
	require.NotContains(t, row, `class="time"`)
	require.Contains(t, page, `<textarea name="message" rows="2" disabled>`)

	close(release)
	require.Equal(t, http.StatusOK, <-done)
	require.Len(t, env.state(t, cookie).Entries, 3)
}

func TestFormSendAndSidebar(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	form := url.Values{"message": {"from the form"}}
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := env.do(req, cookie)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	require.Len(t, env.state(t, cookie).Entries, 3)

	resp = env.do(httptest.NewRequest(http.MethodPost, "/sidebar", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	require.True(t, env.state(t, cookie).SidebarOpen)

	resp = env.do(httptest.NewRequest(http.MethodPost, "/api/sidebar", nil), cookie)
	require.Equal(t, http.StatusOK, resp.Code)
	require.False(t, env.state(t, cookie).SidebarOpen)
}

func TestLogout(t *testing.T) {
	env := newEnv(t, nil, nil)
	cookie := env.login(t)
	require.Equal(t, 1, env.sessions.Len())

	resp := env.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	require.Equal(t, "/login", resp.Header().Get("Location"))
	cleared := resp.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
	require.Equal(t, 0, env.sessions.Len())

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/state", nil), cookie)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	// Signing out twice still clears the cookie.
	resp = env.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.Code)
}

func TestLogout_AbandonsPendingReply(t *testing.T) {
	entered := make(chan struct{})
	replies := &stubReply{AskFunc: func(ctx context.Context, _ []reply.Prompt) (string, error) {
		close(entered)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	env := newEnv(t, replies, nil)
	cookie := env.login(t)
	env.waitReady(t, cookie)

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.do(postJSON("/api/messages", map[string]string{"message": "hi"}), cookie)
	}()
	<-entered

	env.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	<-done

	_, err := env.store.Load(context.Background(), "u1")
	require.ErrorIs(t, err, history.ErrNotFound)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(session.ErrBusy))
	assert.Equal(t, http.StatusConflict, statusFor(session.ErrNotReady))
	assert.Equal(t, http.StatusBadRequest, statusFor(session.ErrEmptyMessage))
	assert.Equal(t, http.StatusUnauthorized, statusFor(session.ErrClosed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestWebSocket_StreamsSnapshots(t *testing.T) {
	env := newEnv(t, nil, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	cookie := env.login(t)
	env.waitReady(t, cookie)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Cookie": {(&http.Cookie{Name: cookie.Name, Value: cookie.Value}).String()}})
	require.NoError(t, err)
	defer conn.Close()

	var snap session.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	require.True(t, snap.Ready)
	require.Len(t, snap.Entries, 1)

	payload, _ := json.Marshal(map[string]string{"message": "hello"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/messages", bytes.NewReader(payload))
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Snapshots are latest-wins; read until the reply has landed.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for !(len(snap.Entries) == 3 && !snap.Busy) {
		require.NoError(t, conn.ReadJSON(&snap))
	}
	require.Equal(t, reply.DegradedText, snap.Entries[2].Text)

	env.sessions.Close(cookie.Value)
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestWebSocket_RequiresSignIn(t *testing.T) {
	env := newEnv(t, nil, nil)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
