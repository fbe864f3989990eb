// Package model はドメインモデルを定義する。
package model

import "time"

// Course は講座を表す。
// Capacityが0の場合は定員無制限として扱う。
type Course struct {
	ID          string
	Title       string
	Description string
	Capacity    int
	StartsAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration は会員の講座への受講登録を表す。
// 1会員1講座につき最大1件（UNIQUE制約）。
type Registration struct {
	ID        string
	UserID    string
	CourseID  string
	CreatedAt time.Time
}
