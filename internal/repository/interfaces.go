// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error

	// UpdateRole はユーザーの役割タグを更新する。
	UpdateRole(ctx context.Context, userID string, role model.Role) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// UpdateUsername は表示名を更新する。
	UpdateUsername(ctx context.Context, id, username string) error

	// SetAdmin は管理者フラグを設定する。
	SetAdmin(ctx context.Context, id string, isAdmin bool) error

	// List は全プロフィールをcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// DonationRepository は寄付データの永続化インターフェース。
// 状態遷移は条件付きUPDATEで実装し、同時実行の競合はここで検出する。
type DonationRepository interface {
	// FindByID は指定IDの寄付を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Donation, error)

	// Create は寄付を作成する。
	Create(ctx context.Context, donation *model.Donation) error

	// List はフィルタに一致する寄付一覧をcreated_at降順で返す。
	List(ctx context.Context, filter model.DonationFilter) ([]*model.Donation, error)

	// ListWithDonor は全寄付をドナーのusername付きでcreated_at降順で返す。
	// 管理者の寄付一覧で使用する。
	ListWithDonor(ctx context.Context) ([]model.DonationWithDonor, error)

	// AcceptIfPending はstatusがpendingの場合のみaccepted + volunteer_idに更新する。
	// 遷移できた場合はtrueを返す。pending以外（競合で先を越された場合を含む）はfalse。
	AcceptIfPending(ctx context.Context, donationID, volunteerID string) (bool, error)

	// CompleteIfAccepted はstatusがacceptedの場合のみcompletedに更新する。
	// 遷移できた場合はtrueを返す。
	CompleteIfAccepted(ctx context.Context, donationID string) (bool, error)

	// SetStatus はstatusを現在の状態にかかわらず無条件に上書きする。
	// volunteerIDがnil以外の場合はvolunteer_idも同時に更新する。
	// 管理者のモデレーション専用で、状態機械を迂回する。
	SetStatus(ctx context.Context, donationID string, status model.DonationStatus, volunteerID *string) error

	// Delete は指定IDの寄付を完全に削除する。
	Delete(ctx context.Context, donationID string) error
}
