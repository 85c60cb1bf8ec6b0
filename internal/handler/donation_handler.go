package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Olamidayoo/harvest-helping-hands/internal/donation"
	"github.com/Olamidayoo/harvest-helping-hands/internal/middleware"
	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// defaultMaxUploadBytes はmultipartフォーム全体の受け付け上限のデフォルト。
// 画像5MiB + その他フィールドの余裕分。
const defaultMaxUploadBytes = 6 << 20

// DonationServiceInterface は寄付ハンドラーが必要とするサービスインターフェース。
type DonationServiceInterface interface {
	// Create は寄付を新規作成する。画像の保存に失敗した場合、作成自体が中断される。
	Create(ctx context.Context, donorID string, input donation.CreateInput) (*model.Donation, error)
	// Accept はpending状態の寄付を引き受ける。競合時はDONATION_NOT_PENDINGを返す。
	Accept(ctx context.Context, volunteerID, donationID string) (*model.Donation, error)
	// Complete は引き受け済みの寄付を完了にする。担当ボランティアまたは管理者のみ。
	Complete(ctx context.Context, userID, donationID string) (*model.Donation, error)
	// List は絞り込み条件付きで寄付一覧を返す。
	List(ctx context.Context, filter model.DonationFilter) ([]*model.Donation, error)
	// Get は寄付詳細を返す。
	Get(ctx context.Context, donationID string) (*model.Donation, error)
}

// DonationHandler は寄付管理のHTTPハンドラー。
type DonationHandler struct {
	service        DonationServiceInterface
	maxUploadBytes int64
}

// NewDonationHandler はDonationHandlerを生成する。
func NewDonationHandler(service DonationServiceInterface) *DonationHandler {
	return &DonationHandler{
		service:        service,
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// createDonationRequest は寄付作成リクエストのボディ。
// JSONボディまたはmultipart/form-dataのフィールドとして受け取る。
type createDonationRequest struct {
	FoodName      string `json:"food_name" validate:"required"`
	Description   string `json:"description" validate:"required"`
	Quantity      string `json:"quantity" validate:"required"`
	Location      string `json:"location" validate:"required"`
	ExpiryDate    string `json:"expiry_date" validate:"omitempty"`
	AvailableTime string `json:"available_time"`
	ContactName   string `json:"contact_name" validate:"required"`
	ContactPhone  string `json:"contact_phone" validate:"required"`
	ImageSrcURL   string `json:"image_src_url" validate:"omitempty,url"`
}

// donationResponse は寄付情報のAPIレスポンス。
type donationResponse struct {
	ID            string     `json:"id"`
	DonorID       string     `json:"donor_id"`
	FoodName      string     `json:"food_name"`
	Description   string     `json:"description"`
	Quantity      string     `json:"quantity"`
	Location      string     `json:"location"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	AvailableTime string     `json:"available_time,omitempty"`
	ContactName   string     `json:"contact_name"`
	ContactPhone  string     `json:"contact_phone"`
	Status        string     `json:"status"`
	VolunteerID   *string    `json:"volunteer_id,omitempty"`
	ImageURL      *string    `json:"image_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// donationListResponse は寄付一覧のレスポンス。
type donationListResponse struct {
	Donations []donationResponse `json:"donations"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Create は寄付を新規作成する。
// POST /api/donations
// JSONボディ（image_src_urlによる外部URL取り込み）と
// multipart/form-data（imageフィールドのファイルアップロード）の両方を受け付ける。
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var (
		req       createDonationRequest
		imageData []byte
		imageExt  string
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		req, imageData, imageExt, err = h.parseMultipartDonation(r)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidRequestBody(w)
			return
		}
	}

	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(validationDetail(err)))
		return
	}

	expiryDate, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("expiry_date の形式が不正です"))
		return
	}

	created, err := h.service.Create(r.Context(), userID, donation.CreateInput{
		FoodName:      req.FoodName,
		Description:   req.Description,
		Quantity:      req.Quantity,
		Location:      req.Location,
		ExpiryDate:    expiryDate,
		AvailableTime: req.AvailableTime,
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		ImageData:     imageData,
		ImageExt:      imageExt,
		ImageSrcURL:   req.ImageSrcURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDonationResponse(created))
}

// List は寄付一覧を取得する。
// GET /api/donations?status=pending&donor_id=xxx&volunteer_id=yyy
func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.DonationFilter{
		Status:      model.DonationStatus(query.Get("status")),
		DonorID:     query.Get("donor_id"),
		VolunteerID: query.Get("volunteer_id"),
	}

	donations, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := donationListResponse{Donations: make([]donationResponse, 0, len(donations))}
	for _, d := range donations {
		resp.Donations = append(resp.Donations, toDonationResponse(d))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Get は寄付詳細を取得する。
// GET /api/donations/:id
func (h *DonationHandler) Get(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "id")

	d, err := h.service.Get(r.Context(), donationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDonationResponse(d))
}

// Accept はpending状態の寄付を引き受ける。
// POST /api/donations/:id/accept
func (h *DonationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	donationID := chi.URLParam(r, "id")

	d, err := h.service.Accept(r.Context(), userID, donationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDonationResponse(d))
}

// Complete は引き受け済みの寄付を完了にする。
// POST /api/donations/:id/complete
func (h *DonationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	donationID := chi.URLParam(r, "id")

	d, err := h.service.Complete(r.Context(), userID, donationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toDonationResponse(d))
}

// --- ヘルパー関数 ---

// parseMultipartDonation はmultipartフォームから寄付作成リクエストを組み立てる。
// imageフィールドが存在する場合はファイル内容と拡張子も返す。
func (h *DonationHandler) parseMultipartDonation(r *http.Request) (createDonationRequest, []byte, string, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return createDonationRequest{}, nil, "", model.NewUploadFailedError("フォームの解析に失敗しました")
	}

	req := createDonationRequest{
		FoodName:      r.FormValue("food_name"),
		Description:   r.FormValue("description"),
		Quantity:      r.FormValue("quantity"),
		Location:      r.FormValue("location"),
		ExpiryDate:    r.FormValue("expiry_date"),
		AvailableTime: r.FormValue("available_time"),
		ContactName:   r.FormValue("contact_name"),
		ContactPhone:  r.FormValue("contact_phone"),
		ImageSrcURL:   r.FormValue("image_src_url"),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, "", nil
		}
		return createDonationRequest{}, nil, "", model.NewUploadFailedError("画像ファイルの読み込みに失敗しました")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		return createDonationRequest{}, nil, "", model.NewUploadFailedError("画像ファイルの読み込みに失敗しました")
	}

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	return req, data, ext, nil
}

// parseExpiryDate は日付のみ（2006-01-02）とRFC3339の両方の形式を受け付ける。
func parseExpiryDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// toDonationResponse はmodel.DonationからAPIレスポンスに変換する。
func toDonationResponse(d *model.Donation) donationResponse {
	return donationResponse{
		ID:            d.ID,
		DonorID:       d.DonorID,
		FoodName:      d.FoodName,
		Description:   d.Description,
		Quantity:      d.Quantity,
		Location:      d.Location,
		ExpiryDate:    d.ExpiryDate,
		AvailableTime: d.AvailableTime,
		ContactName:   d.ContactName,
		ContactPhone:  d.ContactPhone,
		Status:        string(d.Status),
		VolunteerID:   d.VolunteerID,
		ImageURL:      d.ImageURL,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// validationDetail はvalidatorのエラーから先頭フィールドの説明を組み立てる。
func validationDetail(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		first := ve[0]
		switch first.Tag() {
		case "required":
			return first.Field() + " は必須です"
		case "email":
			return first.Field() + " の形式が不正です"
		case "min":
			return first.Field() + " が短すぎます"
		case "url":
			return first.Field() + " はURL形式で指定してください"
		case "oneof":
			return first.Field() + " に指定できない値です"
		}
		return first.Field() + " が不正です"
	}
	return "リクエスト内容を確認してください"
}

// writeInvalidRequestBody はJSONボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("リクエストボディの解析に失敗しました"))
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeRoleForbidden, model.ErrCodeAdminRequired, model.ErrCodeImageURLBlocked:
		return http.StatusForbidden
	case model.ErrCodeInvalidRole, model.ErrCodeInvalidStatus, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeDonationNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeDonationNotPending, model.ErrCodeDonationNotAccepted:
		return http.StatusConflict
	case model.ErrCodeUploadFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
