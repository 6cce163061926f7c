package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// memStore はテスト用のインメモリTokenStore。
type memStore struct {
	mu    sync.Mutex
	token string

	saveErr error
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memStore) Save(token string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

var _ TokenStore = (*memStore)(nil)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// newSessionServer は「tokenFor:<sub>」形式のトークンのみ受け付けるテストサーバーを返す。
func newSessionServer(t *testing.T, todosHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tokenFor:alice" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "googleSub": "alice"})
	})
	if todosHandler != nil {
		mux.HandleFunc("/todos", todosHandler)
		mux.HandleFunc("/todos/", todosHandler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// --- Restore ---

// トークン未保存の場合は匿名状態のまま正常終了することを検証
func TestRestore_NoStoredToken(t *testing.T) {
	server := newSessionServer(t, nil)
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})

	user, err := m.Restore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
	if m.Authenticated() {
		t.Error("should remain anonymous")
	}
}

// 有効な保存済みトークンで復元できることを検証
func TestRestore_ValidToken(t *testing.T) {
	server := newSessionServer(t, nil)
	store := &memStore{token: "tokenFor:alice"}
	m := NewSessionManager(NewClient(server.URL, nil), store)

	user, err := m.Restore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.GoogleSub != "alice" {
		t.Errorf("user = %+v", user)
	}
	if !m.Authenticated() {
		t.Error("should be authenticated")
	}
}

// 無効化された保存済みトークンは破棄され、匿名状態に戻ることを検証
func TestRestore_StaleToken(t *testing.T) {
	server := newSessionServer(t, nil)
	store := &memStore{token: "tokenFor:revoked"}
	m := NewSessionManager(NewClient(server.URL, nil), store)

	_, err := m.Restore(context.Background())
	if err == nil {
		t.Fatal("expected error for stale token")
	}
	if m.Authenticated() {
		t.Error("should be anonymous after failed restore")
	}

	stored, _ := store.Load()
	if stored != "" {
		t.Errorf("stored token = %q, want cleared", stored)
	}
}

// --- Login / Logout ---

// ログイン成功時のみトークンが永続化されることを検証
func TestLogin(t *testing.T) {
	server := newSessionServer(t, nil)
	store := &memStore{}
	m := NewSessionManager(NewClient(server.URL, nil), store)

	// 無効トークンは保存されない
	if _, err := m.Login(context.Background(), "tokenFor:bob"); err == nil {
		t.Fatal("expected error for invalid token")
	}
	if stored, _ := store.Load(); stored != "" {
		t.Errorf("invalid token should not be saved, got %q", stored)
	}

	// 有効トークンは保存される
	user, err := m.Login(context.Background(), "tokenFor:alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.GoogleSub != "alice" {
		t.Errorf("GoogleSub = %q", user.GoogleSub)
	}
	if stored, _ := store.Load(); stored != "tokenFor:alice" {
		t.Errorf("stored token = %q", stored)
	}
}

// 永続化に失敗した場合はセッションが確立されないことを検証
func TestLogin_SaveFailure(t *testing.T) {
	server := newSessionServer(t, nil)
	store := &memStore{saveErr: errors.New("disk full")}
	m := NewSessionManager(NewClient(server.URL, nil), store)

	if _, err := m.Login(context.Background(), "tokenFor:alice"); err == nil {
		t.Fatal("expected error")
	}
	if m.Authenticated() {
		t.Error("session should not be established")
	}
}

// ログアウトで状態と保存トークンの両方が破棄されることを検証
func TestLogout(t *testing.T) {
	server := newSessionServer(t, nil)
	store := &memStore{}
	m := NewSessionManager(NewClient(server.URL, nil), store)

	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if m.Authenticated() {
		t.Error("should be anonymous after logout")
	}
	if stored, _ := store.Load(); stored != "" {
		t.Errorf("stored token = %q, want cleared", stored)
	}
}

// --- ToDo操作 ---

// RefreshTodosがキャッシュを更新することを検証
func TestRefreshTodos(t *testing.T) {
	server := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 2, "title": "新しい方", "completed": false},
			{"id": 1, "title": "古い方", "completed": true},
		})
	})
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})
	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	todos, err := m.RefreshTodos(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("len = %d, want 2", len(todos))
	}

	cached := m.Todos()
	if len(cached) != 2 || cached[0].ID != 2 {
		t.Errorf("cache = %+v", cached)
	}
}

// 匿名状態でのToDo操作がエラーになることを検証
func TestRefreshTodos_NotAuthenticated(t *testing.T) {
	server := newSessionServer(t, nil)
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})

	if _, err := m.RefreshTodos(context.Background()); err == nil {
		t.Fatal("expected error for anonymous session")
	}
}

// 作成されたToDoがキャッシュの先頭に追加されることを検証
func TestCreateTodo_PrependsToCache(t *testing.T) {
	server := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "title": "新規", "completed": false})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "title": "既存", "completed": false}})
	})
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})
	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := m.RefreshTodos(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	todo, err := m.CreateTodo(context.Background(), "新規")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if todo.ID != 3 {
		t.Errorf("ID = %d", todo.ID)
	}

	cached := m.Todos()
	if len(cached) != 2 || cached[0].ID != 3 {
		t.Errorf("new todo should be first in cache: %+v", cached)
	}
}

// 実行中の書き込みがある間、2つ目の書き込みが即座に拒否されることを検証
func TestCreateTodo_RejectsConcurrentSave(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	server := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "title": "遅いタスク", "completed": false})
	})
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})
	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := m.CreateTodo(context.Background(), "遅いタスク"); err != nil {
			t.Errorf("first create failed: %v", err)
		}
	}()

	<-started
	_, err := m.CreateTodo(context.Background(), "割り込みタスク")
	if !errors.Is(err, ErrSaveInProgress) {
		t.Errorf("err = %v, want ErrSaveInProgress", err)
	}

	close(release)
	wg.Wait()

	// 完了後は再び書き込める（サーバーは既にレスポンス済みなので新しいrelease不要）
	if m.saving {
		t.Error("saving flag should be cleared after completion")
	}
}

// 操作中の401でセッション全体が破棄されることを検証
func TestRefreshTodos_AuthErrorResetsSession(t *testing.T) {
	server := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	store := &memStore{}
	m := NewSessionManager(NewClient(server.URL, nil), store)
	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	_, err := m.RefreshTodos(context.Background())
	if !IsUnauthenticated(err) {
		t.Fatalf("expected 401 error, got %v", err)
	}

	if m.Authenticated() {
		t.Error("session should be reset after 401")
	}
	if len(m.Todos()) != 0 {
		t.Error("cached todos should be cleared")
	}
	if stored, _ := store.Load(); stored != "" {
		t.Errorf("stored token = %q, want cleared", stored)
	}
}

// ToggleTodoがキャッシュ上の完了状態を反転して送信することを検証
func TestToggleTodo(t *testing.T) {
	server := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["completed"] != true {
				t.Errorf("completed = %v, want true", body["completed"])
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": 1, "title": "タスク", "completed": true})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "title": "タスク", "completed": false}})
	})
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})
	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := m.RefreshTodos(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	todo, err := m.ToggleTodo(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !todo.Completed {
		t.Error("Completed should be true")
	}

	cached := m.Todos()
	if !cached[0].Completed {
		t.Error("cache should reflect the toggled state")
	}
}

// DeleteTodoがキャッシュからも該当エントリを取り除くことを検証
func TestDeleteTodo_RemovesFromCache(t *testing.T) {
	server := newSessionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "title": "残す", "completed": false},
			{"id": 2, "title": "消す", "completed": false},
		})
	})
	m := NewSessionManager(NewClient(server.URL, nil), &memStore{})
	if _, err := m.Login(context.Background(), "tokenFor:alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := m.RefreshTodos(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if err := m.DeleteTodo(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached := m.Todos()
	if len(cached) != 1 || cached[0].ID != 1 {
		t.Errorf("cache = %+v, want only ID 1", cached)
	}
}
