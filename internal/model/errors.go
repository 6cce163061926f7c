package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, todo, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingToken   = "MISSING_TOKEN"
	ErrCodeInvalidToken   = "INVALID_TOKEN"
	ErrCodeInvalidTitle   = "INVALID_TITLE"
	ErrCodeEmptyPatch     = "EMPTY_PATCH"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeTodoNotFound   = "TODO_NOT_FOUND"
)

// NewMissingTokenError はベアラートークン未指定エラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingToken,
		Message:  "ベアラートークンがありません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
// 署名・audience不一致・期限切れ・検証サービス到達不能はすべてこのエラーに集約される。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidTitleError はタイトルが空（空白のみを含む）の場合のエラーを生成する。
func NewInvalidTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTitle,
		Message:  "タイトルを入力してください。",
		Category: "validation",
		Action:   "1文字以上のタイトルを指定してください。",
	}
}

// NewEmptyPatchError は更新フィールドが1つも指定されていない場合のエラーを生成する。
func NewEmptyPatchError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyPatch,
		Message:  "更新するフィールドが指定されていません。",
		Category: "validation",
		Action:   "titleまたはcompletedのいずれかを指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewTodoNotFoundError はToDoが見つからない場合のエラーを生成する。
// 他ユーザーが所有するToDoも「存在しない」として扱われる（ID探索を防ぐため区別しない）。
func NewTodoNotFoundError(todoID int64) *APIError {
	return &APIError{
		Code:     ErrCodeTodoNotFound,
		Message:  fmt.Sprintf("指定されたToDoが見つかりません: %d", todoID),
		Category: "todo",
		Action:   "ToDoのIDを確認してください。",
	}
}
