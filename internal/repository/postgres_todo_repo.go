package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gotodo/internal/model"
)

// PostgresTodoRepo はPostgreSQLを使用したToDoリポジトリ。
// 全クエリが id と user_id を同時に条件指定するため、他ユーザーのToDoは
// 「存在しないToDo」と区別されない。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

// Create は新規ToDoを作成し、採番済みの行を返す。
func (r *PostgresTodoRepo) Create(ctx context.Context, userID int64, title string) (*model.Todo, error) {
	todo := &model.Todo{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, user_id, title, completed, created_at, updated_at`,
		userID, title,
	).Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}

	return todo, nil
}

// ListByUserID は指定ユーザーの全ToDoをcreated_at降順で返す。
func (r *PostgresTodoRepo) ListByUserID(ctx context.Context, userID int64) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, completed, created_at, updated_at
		 FROM todos
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []*model.Todo{}
	for rows.Next() {
		todo := &model.Todo{}
		if err := rows.Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}

	return todos, nil
}

// Update は指定フィールドのみを更新した行を返す。
// COALESCEでnilフィールドを現在値に据え置き、1文のUPDATEで部分更新を行う
// （読み取り→書き込みの2段階にしないことで行レベルの原子性をストアに委ねる）。
func (r *PostgresTodoRepo) Update(ctx context.Context, userID, todoID int64, title *string, completed *bool) (*model.Todo, error) {
	todo := &model.Todo{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET title = COALESCE($3, title),
		     completed = COALESCE($4, completed),
		     updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, completed, created_at, updated_at`,
		todoID, userID, title, completed,
	).Scan(&todo.ID, &todo.UserID, &todo.Title, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	return todo, nil
}

// Delete は指定ToDoを物理削除する。対象行がない場合はfalseを返す。
func (r *PostgresTodoRepo) Delete(ctx context.Context, userID, todoID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`,
		todoID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
