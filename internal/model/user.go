// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーが選択する役割タグを表す。
type Role string

const (
	// RoleDonor は食品を寄付する側の役割。
	RoleDonor Role = "donor"
	// RoleVolunteer は寄付を受け取り配達するボランティアの役割。
	RoleVolunteer Role = "volunteer"
)

// IsValid はroleが定義済みの値であるかを返す。
func (r Role) IsValid() bool {
	return r == RoleDonor || r == RoleVolunteer
}

// User はメール・パスワードで認証されるアカウントを表す。
// Roleは役割選択フローで設定されるまで空のままとなる。
// 役割の変更は本人による役割選択フローの再実行のみで行われる。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role // 未選択の場合は空文字列
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
