// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// GoogleSubは外部IdP（Google）が発行する安定した識別子で、一度割り当てられたら変化しない。
// プロフィール項目（Email, Name, Picture）はIdPが返さなくなった場合にNULLへ上書きされるため
// ポインタ型で保持する。
type User struct {
	ID        int64
	GoogleSub string
	Email     *string
	Name      *string
	Picture   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
