// Package todo はToDo管理のドメインロジックを提供する。
package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/gotodo/internal/model"
	"github.com/hitoshi/gotodo/internal/repository"
	"github.com/hitoshi/gotodo/internal/security"
)

// Service はToDo管理のサービス層。
// 入力検証とリポジトリ結果のドメインエラーへの変換を担う。
// 所有権の判定はリポジトリのクエリ条件に委ねる。
type Service struct {
	todoRepo  repository.TodoRepository
	sanitizer security.TitleSanitizer
}

// NewService はServiceを生成する。
func NewService(todoRepo repository.TodoRepository, sanitizer security.TitleSanitizer) *Service {
	return &Service{
		todoRepo:  todoRepo,
		sanitizer: sanitizer,
	}
}

// Create は新規ToDoを作成する。
// タイトルはサニタイズ後に前後の空白を除去し、空になる場合は検証エラーを返す。
func (s *Service) Create(ctx context.Context, userID int64, title string) (*model.Todo, error) {
	cleaned, err := s.cleanTitle(title)
	if err != nil {
		return nil, err
	}

	todo, err := s.todoRepo.Create(ctx, userID, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	return todo, nil
}

// List は指定ユーザーの全ToDoを作成日時の降順で返す。
func (s *Service) List(ctx context.Context, userID int64) ([]*model.Todo, error) {
	todos, err := s.todoRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}

	return todos, nil
}

// Update はToDoを部分更新する。
// フィールドが1つも指定されていない場合は検証エラーを返す（無変更の書き込みを黙認しない）。
// 指定ユーザーが所有するToDoが見つからない場合はNotFoundエラーを返す。
// 他ユーザーが所有するToDoも同じNotFoundになる。
func (s *Service) Update(ctx context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error) {
	if title == nil && completed == nil {
		return nil, model.NewEmptyPatchError()
	}

	if title != nil {
		cleaned, err := s.cleanTitle(*title)
		if err != nil {
			return nil, err
		}
		title = &cleaned
	}

	todo, err := s.todoRepo.Update(ctx, userID, todoID, title, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(todoID)
	}

	return todo, nil
}

// Delete はToDoを完全に削除する。
// 所有判定はUpdateと同じNotFoundルールに従う。
func (s *Service) Delete(ctx context.Context, userID, todoID int64) error {
	deleted, err := s.todoRepo.Delete(ctx, userID, todoID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if !deleted {
		return model.NewTodoNotFoundError(todoID)
	}

	return nil
}

// cleanTitle はタイトルをサニタイズ・トリムし、空になる場合は検証エラーを返す。
func (s *Service) cleanTitle(title string) (string, error) {
	cleaned := title
	if s.sanitizer != nil {
		cleaned = s.sanitizer.Sanitize(cleaned)
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", model.NewInvalidTitleError()
	}
	return cleaned, nil
}
