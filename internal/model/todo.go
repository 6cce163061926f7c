package model

import "time"

// Todo はユーザーが所有するToDoレコードを表す。
// 所有者（UserID）のスコープ外からは一切参照・変更できない。
type Todo struct {
	ID        int64
	UserID    int64
	Title     string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
