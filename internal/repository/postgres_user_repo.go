package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gotodo/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// UpsertByGoogleSub はgoogle_subをキーにユーザーを作成または更新し、結果の行を返す。
// INSERT ... ON CONFLICT により、同一subjectの同時初回認証でも行が二重に作られることはない。
func (r *PostgresUserRepo) UpsertByGoogleSub(ctx context.Context, googleSub string, email, name, picture *string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (google_sub, email, name, picture)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (google_sub) DO UPDATE
		 SET email = EXCLUDED.email, name = EXCLUDED.name, picture = EXCLUDED.picture, updated_at = now()
		 RETURNING id, google_sub, email, name, picture, created_at, updated_at`,
		googleSub, email, name, picture,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, google_sub, email, name, picture, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// scanUser は1行をmodel.Userに読み込む。NULL許容列はsql.NullString経由で変換する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var email, name, picture sql.NullString

	err := row.Scan(&user.ID, &user.GoogleSub, &email, &name, &picture, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.Email = nullStringPtr(email)
	user.Name = nullStringPtr(name)
	user.Picture = nullStringPtr(picture)
	return user, nil
}

// nullStringPtr はsql.NullStringを*stringに変換する。NULLはnilになる。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
