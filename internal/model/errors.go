// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, donation, upload, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeRoleForbidden       = "ROLE_FORBIDDEN"
	ErrCodeAdminRequired       = "ADMIN_REQUIRED"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeDonationNotFound    = "DONATION_NOT_FOUND"
	ErrCodeDonationNotPending  = "DONATION_NOT_PENDING"
	ErrCodeDonationNotAccepted = "DONATION_NOT_ACCEPTED"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
	ErrCodeImageURLBlocked     = "IMAGE_URL_BLOCKED"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無を区別しないメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidRoleError は無効な役割エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効な役割です: %s", role),
		Category: "validation",
		Action:   "役割には donor または volunteer を指定してください。",
	}
}

// NewRoleForbiddenError は役割不一致エラーを生成する。
// 例: donor役割のユーザーがボランティア用の操作を要求した場合。
func NewRoleForbiddenError(required Role) *APIError {
	return &APIError{
		Code:     ErrCodeRoleForbidden,
		Message:  fmt.Sprintf("この操作には %s 役割が必要です。", required),
		Category: "auth",
		Action:   "役割選択フローから適切な役割を選択してください。",
	}
}

// NewAdminRequiredError は管理者権限エラーを生成する。
// リダイレクトではなく説明付きのレスポンスとして表示される。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "この操作には管理者権限が必要です。",
		Category: "auth",
		Action:   "管理者権限が必要な場合は運営者に連絡してください。",
	}
}

// NewValidationFailedError は入力検証エラーを生成する。
// detailには不足・不正なフィールドの説明を含める。
func NewValidationFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", detail),
		Category: "validation",
		Action:   "必須項目をすべて入力して再度お試しください。",
	}
}

// NewDonationNotFoundError は寄付未検出エラーを生成する。
func NewDonationNotFoundError(donationID string) *APIError {
	return &APIError{
		Code:     ErrCodeDonationNotFound,
		Message:  fmt.Sprintf("指定された寄付が見つかりません: %s", donationID),
		Category: "donation",
		Action:   "寄付IDを確認してください。",
	}
}

// NewDonationNotPendingError は引き受け不可エラーを生成する。
// pending以外の寄付への引き受け要求（競合を含む）で返される。
func NewDonationNotPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeDonationNotPending,
		Message:  "この寄付は既に引き受けられているか、受付を終了しています。",
		Category: "donation",
		Action:   "一覧を更新して他の寄付を確認してください。",
	}
}

// NewDonationNotAcceptedError は完了不可エラーを生成する。
// accepted以外の寄付への完了要求で返される。
func NewDonationNotAcceptedError() *APIError {
	return &APIError{
		Code:     ErrCodeDonationNotAccepted,
		Message:  "引き受け済みでない寄付は完了にできません。",
		Category: "donation",
		Action:   "寄付の現在の状態を確認してください。",
	}
}

// NewInvalidStatusError は無効な状態値エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な状態です: %s", status),
		Category: "validation",
		Action:   "状態には pending、accepted、completed、cancelled のいずれかを指定してください。",
	}
}

// NewUploadFailedError は画像アップロード失敗エラーを生成する。
// アップロード失敗時は寄付レコードの作成自体が中断される。
func NewUploadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("画像のアップロードに失敗しました: %s", reason),
		Category: "upload",
		Action:   "画像ファイルを確認して再度お試しください。",
	}
}

// NewImageURLBlockedError は画像URL取得ブロックエラーを生成する。
func NewImageURLBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeImageURLBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLからの画像取得がブロックされました。",
		Category: "upload",
		Action:   "公開されているWebサイトの画像URLを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
