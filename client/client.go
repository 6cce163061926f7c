// Package client はToDo APIの型付きGoクライアントとセッション管理を提供する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Todo はAPIが返すToDoレコードを表す。
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthUser はAPIが返すログインユーザー情報を表す。
type AuthUser struct {
	ID        int64   `json:"id"`
	GoogleSub string  `json:"googleSub"`
	Email     *string `json:"email"`
	Name      *string `json:"name"`
	Picture   *string `json:"picture"`
}

// UpdateTodoPayload はToDo部分更新のペイロード。nilフィールドは送信されない。
type UpdateTodoPayload struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// APIError はAPIから返されたエラーレスポンスを表す。
type APIError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsUnauthenticated はエラーが認証カテゴリ（401）かどうかを判定する。
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client はToDo APIへの型付きリクエストを行うクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient はClientを生成する。
// httpClientがnilの場合はタイムアウト付きのデフォルトクライアントを使用する。
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GetMe は現在のログインユーザー情報を取得する。
// トークンの再検証を兼ねる（サーバー側でユーザー行が作成・更新される）。
func (c *Client) GetMe(ctx context.Context, token string) (*AuthUser, error) {
	var user AuthUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTodos はログインユーザーのToDo一覧を取得する。
func (c *Client) ListTodos(ctx context.Context, token string) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, http.MethodGet, "/todos", token, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo は新規ToDoを作成する。
func (c *Client) CreateTodo(ctx context.Context, token, title string) (*Todo, error) {
	var todo Todo
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/todos", token, body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo はToDoを部分更新する。
func (c *Client) UpdateTodo(ctx context.Context, token string, id int64, payload UpdateTodoPayload) (*Todo, error) {
	var todo Todo
	path := fmt.Sprintf("/todos/%d", id)
	if err := c.do(ctx, http.MethodPatch, path, token, payload, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo はToDoを削除する。
func (c *Client) DeleteTodo(ctx context.Context, token string, id int64) error {
	path := fmt.Sprintf("/todos/%d", id)
	return c.do(ctx, http.MethodDelete, path, token, nil, nil)
}

// do はリクエストを送信し、失敗レスポンスをAPIErrorに正規化する。
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    normalizeErrorMessage(raw),
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse response body: %w", err)
		}
	}

	return nil
}

// errorPayload はエラーレスポンスボディの読み取り用。
// messageは文字列または文字列配列のどちらの形式もありうる。
type errorPayload struct {
	Message json.RawMessage `json:"message"`
}

// normalizeErrorMessage はエラーレスポンスボディを表示可能な1つのメッセージに正規化する。
// messageが配列の場合は", "で連結する。構造化メッセージがない場合は
// ボディをそのまま使い、それも空なら汎用メッセージにフォールバックする。
func normalizeErrorMessage(raw []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Message) > 0 {
		var single string
		if err := json.Unmarshal(payload.Message, &single); err == nil && single != "" {
			return single
		}

		var many []string
		if err := json.Unmarshal(payload.Message, &many); err == nil && len(many) > 0 {
			return strings.Join(many, ", ")
		}
	}

	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}

	return "Request failed"
}
