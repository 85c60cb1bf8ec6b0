// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はユーザーの公開プロフィールを表す。
// usersと1:1で対応し、ユーザー作成と同一トランザクションで作成される。
// usernameは本人のみ、IsAdminは管理者のみが変更できる。
// プロフィールは削除されない。
type Profile struct {
	ID        string // users.idと同一
	Username  string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
