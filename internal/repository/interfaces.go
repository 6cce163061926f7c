// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/gotodo/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// UpsertByGoogleSub はgoogle_subをキーにユーザーを作成または更新し、結果の行を返す。
	// 既存行がある場合はプロフィール項目（email, name, picture）のみを上書きし、
	// IDとgoogle_subは変更しない。nilのプロフィール項目はNULLへ上書きされる。
	// 同一subjectの同時初回認証はストアのUNIQUE制約で解決される（アプリ層でのロックは行わない）。
	UpsertByGoogleSub(ctx context.Context, googleSub string, email, name, picture *string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// TodoRepository はToDoデータの永続化インターフェース。
// 全操作が所有者ユーザーIDでスコープされる。
type TodoRepository interface {
	// Create は新規ToDoを作成し、採番済みの行を返す。
	Create(ctx context.Context, userID int64, title string) (*model.Todo, error)

	// ListByUserID は指定ユーザーの全ToDoをcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID int64) ([]*model.Todo, error)

	// Update は指定フィールドのみを更新し、updated_atを更新した行を返す。
	// nilフィールドは変更しない。userIDが所有していない（または存在しない）
	// ToDoの場合はnilを返す。
	Update(ctx context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error)

	// Delete は指定ToDoを物理削除する。削除した場合はtrueを返し、
	// userIDが所有していない（または存在しない）場合はfalseを返す。
	Delete(ctx context.Context, userID, todoID int64) (bool, error)
}
