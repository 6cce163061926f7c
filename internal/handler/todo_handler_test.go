package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gotodo/internal/middleware"
	"github.com/hitoshi/gotodo/internal/model"
)

// --- モック定義 ---

type mockTodoService struct {
	createFn func(ctx context.Context, userID int64, title string) (*model.Todo, error)
	listFn   func(ctx context.Context, userID int64) ([]*model.Todo, error)
	updateFn func(ctx context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error)
	deleteFn func(ctx context.Context, userID, todoID int64) error
}

func (m *mockTodoService) Create(ctx context.Context, userID int64, title string) (*model.Todo, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, title)
	}
	return nil, nil
}

func (m *mockTodoService) List(ctx context.Context, userID int64) ([]*model.Todo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []*model.Todo{}, nil
}

func (m *mockTodoService) Update(ctx context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, todoID, title, completed)
	}
	return nil, nil
}

func (m *mockTodoService) Delete(ctx context.Context, userID, todoID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, todoID)
	}
	return nil
}

var _ TodoServiceInterface = (*mockTodoService)(nil)

// newTodoTestRouter はToDoハンドラーのみをマウントしたテスト用ルーターを返す。
// 認証ミドルウェアの代わりに固定ユーザーをコンテキストに注入する。
func newTodoTestRouter(service TodoServiceInterface, user *model.User) http.Handler {
	h := NewTodoHandler(service)

	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middleware.ContextWithUser(req.Context(), user)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}

	r.Get("/todos", h.ListTodos)
	r.Post("/todos", h.CreateTodo)
	r.Patch("/todos/{id}", h.UpdateTodo)
	r.Delete("/todos/{id}", h.DeleteTodo)

	return r
}

var testUser = &model.User{ID: 1, GoogleSub: "google-sub-1"}

// --- ListTodos ---

// 一覧がcamelCaseのJSON配列として返ることを検証
func TestListTodos_ReturnsJSONArray(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	service := &mockTodoService{
		listFn: func(_ context.Context, userID int64) ([]*model.Todo, error) {
			if userID != 1 {
				t.Errorf("userID = %d, want 1", userID)
			}
			return []*model.Todo{
				{ID: 2, UserID: 1, Title: "新しい方", CreatedAt: now, UpdatedAt: now},
				{ID: 1, UserID: 1, Title: "古い方", Completed: true, CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
			}, nil
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len = %d, want 2", len(resp))
	}
	if resp[0]["id"].(float64) != 2 {
		t.Errorf("first id = %v, want 2", resp[0]["id"])
	}
	if _, ok := resp[0]["createdAt"]; !ok {
		t.Error("response should use camelCase createdAt")
	}
}

// ToDoが1件もない場合にnullではなく空配列が返ることを検証
func TestListTodos_EmptyArray(t *testing.T) {
	router := newTodoTestRouter(&mockTodoService{}, testUser)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := strings.TrimSpace(rec.Body.String())
	if body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

// --- CreateTodo ---

// 作成成功時に201と作成された行が返ることを検証
func TestCreateTodo_Returns201(t *testing.T) {
	service := &mockTodoService{
		createFn: func(_ context.Context, userID int64, title string) (*model.Todo, error) {
			return &model.Todo{ID: 10, UserID: userID, Title: title}, nil
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title":"牛乳を買う"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["title"] != "牛乳を買う" {
		t.Errorf("title = %v", resp["title"])
	}
	if resp["completed"] != false {
		t.Errorf("completed = %v, want false", resp["completed"])
	}
}

// 不正なJSONボディは400になることを検証
func TestCreateTodo_InvalidJSON(t *testing.T) {
	router := newTodoTestRouter(&mockTodoService{}, testUser)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// 検証エラーが400にマッピングされることを検証
func TestCreateTodo_ValidationError(t *testing.T) {
	service := &mockTodoService{
		createFn: func(_ context.Context, _ int64, _ string) (*model.Todo, error) {
			return nil, model.NewInvalidTitleError()
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInvalidTitle {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidTitle)
	}
}

// --- UpdateTodo ---

// 部分更新のリクエストボディがnilフィールドを保持したままサービスへ渡ることを検証
func TestUpdateTodo_PartialPatch(t *testing.T) {
	service := &mockTodoService{
		updateFn: func(_ context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error) {
			if todoID != 5 {
				t.Errorf("todoID = %d, want 5", todoID)
			}
			if title != nil {
				t.Errorf("title = %v, want nil", *title)
			}
			if completed == nil || !*completed {
				t.Error("completed should be true")
			}
			return &model.Todo{ID: todoID, UserID: userID, Title: "既存", Completed: true}, nil
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodPatch, "/todos/5", strings.NewReader(`{"completed":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

// 整数でないIDは400になることを検証
func TestUpdateTodo_InvalidID(t *testing.T) {
	router := newTodoTestRouter(&mockTodoService{}, testUser)

	req := httptest.NewRequest(http.MethodPatch, "/todos/abc", strings.NewReader(`{"completed":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// NotFoundエラーが404にマッピングされることを検証
func TestUpdateTodo_NotFound(t *testing.T) {
	service := &mockTodoService{
		updateFn: func(_ context.Context, _, todoID int64, _ *string, _ *bool) (*model.Todo, error) {
			return nil, model.NewTodoNotFoundError(todoID)
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodPatch, "/todos/999", strings.NewReader(`{"completed":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// --- DeleteTodo ---

// 削除成功時に204とボディなしが返ることを検証
func TestDeleteTodo_Returns204(t *testing.T) {
	deleted := false
	service := &mockTodoService{
		deleteFn: func(_ context.Context, userID, todoID int64) error {
			deleted = true
			if todoID != 5 {
				t.Errorf("todoID = %d, want 5", todoID)
			}
			return nil
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodDelete, "/todos/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", rec.Body.String())
	}
	if !deleted {
		t.Error("service Delete should be called")
	}
}

// 削除対象がない場合に404が返ることを検証
func TestDeleteTodo_NotFound(t *testing.T) {
	service := &mockTodoService{
		deleteFn: func(_ context.Context, _, todoID int64) error {
			return model.NewTodoNotFoundError(todoID)
		},
	}
	router := newTodoTestRouter(service, testUser)

	req := httptest.NewRequest(http.MethodDelete, "/todos/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// --- 契約違反 ---

// 認証ミドルウェアを通らずユーザーが未注入の場合は500になることを検証
// （配線ミスは認証エラーではなくサーバー側の欠陥として扱う）
func TestTodoHandler_MissingContextUser(t *testing.T) {
	router := newTodoTestRouter(&mockTodoService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
