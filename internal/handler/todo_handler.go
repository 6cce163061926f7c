package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gotodo/internal/middleware"
	"github.com/hitoshi/gotodo/internal/model"
)

// TodoServiceInterface はToDoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	// Create は新規ToDoを作成する。タイトルはトリム後に非空であること。
	Create(ctx context.Context, userID int64, title string) (*model.Todo, error)
	// List は指定ユーザーの全ToDoを作成日時の降順で返す。
	List(ctx context.Context, userID int64) ([]*model.Todo, error)
	// Update はToDoを部分更新する。nilフィールドは変更しない。
	Update(ctx context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error)
	// Delete はToDoを完全に削除する。
	Delete(ctx context.Context, userID, todoID int64) error
}

// TodoHandler はToDo管理のHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{
		service: service,
	}
}

// --- リクエスト・レスポンス型 ---

// todoResponse はToDoのAPIレスポンス。
type todoResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// createTodoRequest はToDo作成リクエストのボディ。
type createTodoRequest struct {
	Title string `json:"title"`
}

// updateTodoRequest はToDo更新リクエストのボディ。
// 未指定フィールドはnilのまま保持し、部分更新として扱う。
type updateTodoRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// ListTodos はログインユーザーのToDo一覧を取得する。
// GET /todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	todos, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]todoResponse, 0, len(todos))
	for _, todo := range todos {
		resp = append(resp, toTodoResponse(todo))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreateTodo は新規ToDoを作成する。
// POST /todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	todo, err := h.service.Create(r.Context(), user.ID, req.Title)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTodoResponse(todo))
}

// UpdateTodo はToDoを部分更新する。
// PATCH /todos/{id}
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	todoID, err := parseTodoID(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("IDは整数で指定してください"))
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	todo, err := h.service.Update(r.Context(), user.ID, todoID, req.Title, req.Completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTodoResponse(todo))
}

// DeleteTodo はToDoを削除する。
// DELETE /todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	todoID, err := parseTodoID(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("IDは整数で指定してください"))
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, todoID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// currentUser はリクエストコンテキストから認証済みユーザーを取得する。
// このハンドラー群は認証ミドルウェアの内側に配線される前提であり、
// ユーザーが取得できないのは配線ミス（契約違反）なので500として即時失敗させる。
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		slog.Error("authenticated user missing from request context",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return user, true
}

// parseTodoID はパスパラメータ{id}を整数として解析する。
func parseTodoID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// toTodoResponse はmodel.TodoからAPIレスポンスに変換する。
func toTodoResponse(todo *model.Todo) todoResponse {
	return todoResponse{
		ID:        todo.ID,
		Title:     todo.Title,
		Completed: todo.Completed,
		CreatedAt: todo.CreatedAt,
		UpdatedAt: todo.UpdatedAt,
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingToken, model.ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidTitle, model.ErrCodeEmptyPatch, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeTodoNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
