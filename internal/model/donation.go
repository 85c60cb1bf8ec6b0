// Package model はドメインモデルを定義する。
package model

import "time"

// DonationStatus は寄付のライフサイクル状態を表す。
type DonationStatus string

const (
	// DonationStatusPending は作成直後の引き取り待ち状態。
	DonationStatusPending DonationStatus = "pending"
	// DonationStatusAccepted はボランティアが引き取りを引き受けた状態。
	DonationStatusAccepted DonationStatus = "accepted"
	// DonationStatusCompleted は配達完了の終端状態。
	DonationStatusCompleted DonationStatus = "completed"
	// DonationStatusCancelled はキャンセルされた終端状態。
	// 主に管理者のモデレーション操作で任意の非終端状態から遷移する。
	DonationStatusCancelled DonationStatus = "cancelled"
)

// IsValid はstatusが定義済みの値であるかを返す。
func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationStatusPending, DonationStatusAccepted,
		DonationStatusCompleted, DonationStatusCancelled:
		return true
	}
	return false
}

// IsTerminal はstatusが終端状態（completed / cancelled）であるかを返す。
func (s DonationStatus) IsTerminal() bool {
	return s == DonationStatusCompleted || s == DonationStatusCancelled
}

// Donation は余剰食品の寄付1件を表す。
// DonorIDは作成時に設定され以後不変。VolunteerIDはボランティアが
// 引き受けるまでnilで、以後はvolunteer役割のユーザーを参照する。
type Donation struct {
	ID            string
	DonorID       string
	FoodName      string
	Description   string // サニタイズ済み
	Quantity      string // 自由記述（例: "5 kg", "3 meals"）
	Location      string // 自由記述の住所
	ExpiryDate    *time.Time
	AvailableTime string // 自由記述の時間帯。未指定の場合は空文字列
	ContactName   string
	ContactPhone  string
	Status        DonationStatus
	VolunteerID   *string
	ImageURL      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DonationWithDonor は寄付とドナーのusernameを結合したモデル。
// 管理者の寄付一覧でprofilesテーブルとJOINして取得される。
type DonationWithDonor struct {
	Donation
	DonorUsername string
}

// DonationFilter は寄付一覧の絞り込み条件を表す。
// ゼロ値は絞り込みなし（全件）。指定されたフィールドのみが適用される。
type DonationFilter struct {
	Status      DonationStatus
	DonorID     string
	VolunteerID string
}

// DonationEvent は寄付レコードの変更通知を表す。
// クライアントの再取得トリガーとしてのみ使用し、差分適用には使用しない。
type DonationEvent struct {
	Type        DonationEventType `json:"type"`
	DonationID  string            `json:"donation_id"`
	DonorID     string            `json:"donor_id"`
	VolunteerID string            `json:"volunteer_id,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// DonationEventType は変更通知の種別を表す。
type DonationEventType string

const (
	// DonationEventInsert は寄付の新規作成を示す。
	DonationEventInsert DonationEventType = "insert"
	// DonationEventUpdate は寄付の更新（状態遷移を含む）を示す。
	DonationEventUpdate DonationEventType = "update"
	// DonationEventDelete は寄付の削除を示す。
	DonationEventDelete DonationEventType = "delete"
)
