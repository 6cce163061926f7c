package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSaveInProgress は別の書き込み操作が実行中の場合に返されるエラー。
// 書き込み操作はキューイングせず、即座に拒否する。
var ErrSaveInProgress = errors.New("another save operation is in progress")

// SessionManager はトークンの永続化・再検証とToDoのローカルキャッシュを管理する。
// 認証カテゴリのエラーを検出すると、セッション全体
// （トークン・ユーザー・キャッシュ済みToDo）を即座に破棄する。
//
// 書き込み操作（Create/Update/Toggle/Delete）は同時に1つだけ実行できる。
// 2つ目の書き込みは待機せずErrSaveInProgressで拒否される
// （利用者は1人なので相互排他は不要だが、連打による二重送信は防ぐ）。
type SessionManager struct {
	client *Client
	store  TokenStore

	mu    sync.Mutex
	token string
	user  *AuthUser
	todos []Todo

	saving bool
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(client *Client, store TokenStore) *SessionManager {
	return &SessionManager{
		client: client,
		store:  store,
	}
}

// Restore は保存済みトークンからセッションを復元する。
// トークンが保存されていない場合は匿名状態のまま(nil, nil)を返す。
// 保存済みトークンは信用する前に/auth/meで再検証し、
// 検証に失敗した場合は保存トークンを破棄して匿名状態に戻したうえでエラーを返す。
func (m *SessionManager) Restore(ctx context.Context) (*AuthUser, error) {
	token, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	}
	if token == "" {
		return nil, nil
	}

	user, err := m.client.GetMe(ctx, token)
	if err != nil {
		m.reset()
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	return user, nil
}

// Login は新しいトークンでセッションを確立する。
// 検証に成功した場合のみトークンを永続化する。
func (m *SessionManager) Login(ctx context.Context, token string) (*AuthUser, error) {
	user, err := m.client.GetMe(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(token); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	return user, nil
}

// Logout はセッションを破棄し、保存済みトークンを削除する。
func (m *SessionManager) Logout() error {
	m.reset()
	return nil
}

// Authenticated は認証済み状態かどうかを返す。
func (m *SessionManager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && m.user != nil
}

// CurrentUser は認証済みユーザーを返す。匿名状態の場合はnilを返す。
func (m *SessionManager) CurrentUser() *AuthUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Todos は最後に取得したToDo一覧のキャッシュを返す。
func (m *SessionManager) Todos() []Todo {
	m.mu.Lock()
	defer m.mu.Unlock()
	todos := make([]Todo, len(m.todos))
	copy(todos, m.todos)
	return todos
}

// RefreshTodos はToDo一覧を取得し直してキャッシュを更新する。
func (m *SessionManager) RefreshTodos(ctx context.Context) ([]Todo, error) {
	token, err := m.currentToken()
	if err != nil {
		return nil, err
	}

	todos, err := m.client.ListTodos(ctx, token)
	if err != nil {
		m.resetOnAuthError(err)
		return nil, err
	}

	m.mu.Lock()
	m.todos = todos
	m.mu.Unlock()

	return todos, nil
}

// CreateTodo は新規ToDoを作成し、キャッシュの先頭に追加する。
func (m *SessionManager) CreateTodo(ctx context.Context, title string) (*Todo, error) {
	if !m.beginSave() {
		return nil, ErrSaveInProgress
	}
	defer m.endSave()

	token, err := m.currentToken()
	if err != nil {
		return nil, err
	}

	todo, err := m.client.CreateTodo(ctx, token, title)
	if err != nil {
		m.resetOnAuthError(err)
		return nil, err
	}

	m.mu.Lock()
	m.todos = append([]Todo{*todo}, m.todos...)
	m.mu.Unlock()

	return todo, nil
}

// UpdateTodo はToDoを部分更新し、キャッシュ内の該当エントリを差し替える。
func (m *SessionManager) UpdateTodo(ctx context.Context, id int64, payload UpdateTodoPayload) (*Todo, error) {
	if !m.beginSave() {
		return nil, ErrSaveInProgress
	}
	defer m.endSave()

	token, err := m.currentToken()
	if err != nil {
		return nil, err
	}

	todo, err := m.client.UpdateTodo(ctx, token, id, payload)
	if err != nil {
		m.resetOnAuthError(err)
		return nil, err
	}

	m.mu.Lock()
	for i := range m.todos {
		if m.todos[i].ID == todo.ID {
			m.todos[i] = *todo
			break
		}
	}
	m.mu.Unlock()

	return todo, nil
}

// ToggleTodo はToDoの完了状態を反転させる。
func (m *SessionManager) ToggleTodo(ctx context.Context, id int64) (*Todo, error) {
	var completed *bool
	m.mu.Lock()
	for i := range m.todos {
		if m.todos[i].ID == id {
			next := !m.todos[i].Completed
			completed = &next
			break
		}
	}
	m.mu.Unlock()

	if completed == nil {
		return nil, fmt.Errorf("todo %d is not in the cached list", id)
	}

	return m.UpdateTodo(ctx, id, UpdateTodoPayload{Completed: completed})
}

// DeleteTodo はToDoを削除し、キャッシュからも取り除く。
func (m *SessionManager) DeleteTodo(ctx context.Context, id int64) error {
	if !m.beginSave() {
		return ErrSaveInProgress
	}
	defer m.endSave()

	token, err := m.currentToken()
	if err != nil {
		return err
	}

	if err := m.client.DeleteTodo(ctx, token, id); err != nil {
		m.resetOnAuthError(err)
		return err
	}

	m.mu.Lock()
	todos := m.todos[:0]
	for _, todo := range m.todos {
		if todo.ID != id {
			todos = append(todos, todo)
		}
	}
	m.todos = todos
	m.mu.Unlock()

	return nil
}

// currentToken は現在のセッショントークンを返す。匿名状態の場合はエラーを返す。
func (m *SessionManager) currentToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", &APIError{StatusCode: 401, Message: "not authenticated"}
	}
	return m.token, nil
}

// beginSave は書き込み操作の開始を試みる。別の書き込みが実行中の場合はfalseを返す。
func (m *SessionManager) beginSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saving {
		return false
	}
	m.saving = true
	return true
}

// endSave は書き込み操作の終了を記録する。
func (m *SessionManager) endSave() {
	m.mu.Lock()
	m.saving = false
	m.mu.Unlock()
}

// resetOnAuthError は認証カテゴリのエラーの場合のみセッションを破棄する。
func (m *SessionManager) resetOnAuthError(err error) {
	if IsUnauthenticated(err) {
		m.reset()
	}
}

// reset はセッション状態（トークン・ユーザー・キャッシュ）を破棄し、保存トークンを削除する。
func (m *SessionManager) reset() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.todos = nil
	m.mu.Unlock()

	// 保存トークンの削除失敗はセッション破棄を妨げない
	_ = m.store.Clear()
}
