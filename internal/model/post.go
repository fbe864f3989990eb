// Package model はドメインモデルを定義する。
package model

import "time"

// Post はブログ投稿を表す。
// Bodyは保存前にサニタイズ済みのHTML。
// Publishedがfalseの投稿はモデレーター以外には公開されない。
type Post struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
