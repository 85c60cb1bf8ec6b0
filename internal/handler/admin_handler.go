package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Olamidayoo/harvest-helping-hands/internal/middleware"
	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// AdminDonationServiceInterface は管理者の寄付モデレーションサービスインターフェース。
type AdminDonationServiceInterface interface {
	// AdminList は全寄付をドナーのusername付きで返す。
	AdminList(ctx context.Context) ([]model.DonationWithDonor, error)
	// AdminSetStatus は通常の遷移規則を迂回して任意の状態を設定する。冪等。
	AdminSetStatus(ctx context.Context, adminID, donationID string, status model.DonationStatus, volunteerID *string) (*model.Donation, error)
	// AdminDelete は寄付レコードと画像を削除する。
	AdminDelete(ctx context.Context, adminID, donationID string) error
}

// AdminUserServiceInterface は管理者のユーザー管理サービスインターフェース。
type AdminUserServiceInterface interface {
	ListUsers(ctx context.Context) ([]*model.Profile, error)
	SetAdmin(ctx context.Context, adminID, targetID string, isAdmin bool) (*model.Profile, error)
}

// AdminHandler は管理者向けモデレーションのHTTPハンドラー。
// 全ルートはRequireAdminミドルウェアの内側に配置される。
type AdminHandler struct {
	donationService AdminDonationServiceInterface
	userService     AdminUserServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(donationService AdminDonationServiceInterface, userService AdminUserServiceInterface) *AdminHandler {
	return &AdminHandler{
		donationService: donationService,
		userService:     userService,
	}
}

// setStatusRequest は状態上書きリクエストのボディ。
// volunteer_idはacceptedへの上書き時に担当者を指定するための任意フィールド。
type setStatusRequest struct {
	Status      string  `json:"status" validate:"required,oneof=pending accepted completed cancelled"`
	VolunteerID *string `json:"volunteer_id"`
}

// setAdminRequest は管理者フラグ更新リクエストのボディ。
type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// adminDonationResponse は管理者一覧用の寄付レスポンス。
type adminDonationResponse struct {
	donationResponse
	DonorUsername string `json:"donor_username"`
}

// adminDonationListResponse は管理者向け寄付一覧のレスポンス。
type adminDonationListResponse struct {
	Donations []adminDonationResponse `json:"donations"`
}

// userListResponse はユーザー一覧のレスポンス。
type userListResponse struct {
	Users []profileResponse `json:"users"`
}

// ListDonations は全寄付をドナー名付きで取得する。
// GET /api/admin/donations
func (h *AdminHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donationService.AdminList(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := adminDonationListResponse{Donations: make([]adminDonationResponse, 0, len(donations))}
	for i := range donations {
		resp.Donations = append(resp.Donations, adminDonationResponse{
			donationResponse: toDonationResponse(&donations[i].Donation),
			DonorUsername:    donations[i].DonorUsername,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetStatus は寄付の状態を任意の値に上書きする。
// PATCH /api/admin/donations/:id/status
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	donationID := chi.URLParam(r, "id")

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidStatusError(req.Status))
		return
	}

	d, err := h.donationService.AdminSetStatus(r.Context(), adminID, donationID, model.DonationStatus(req.Status), req.VolunteerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDonationResponse(d))
}

// DeleteDonation は寄付を削除する。
// DELETE /api/admin/donations/:id
func (h *AdminHandler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	donationID := chi.URLParam(r, "id")

	if err := h.donationService.AdminDelete(r.Context(), adminID, donationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers は全ユーザーのプロフィール一覧を取得する。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.userService.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := userListResponse{Users: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		resp.Users = append(resp.Users, toProfileResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetAdmin は対象ユーザーの管理者フラグを更新する。冪等。
// PUT /api/admin/users/:id/admin
func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	targetID := chi.URLParam(r, "id")

	var req setAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	profile, err := h.userService.SetAdmin(r.Context(), adminID, targetID, req.IsAdmin)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(profile))
}
