// Package donation は寄付のライフサイクルに関するドメインロジックを提供する。
package donation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Olamidayoo/harvest-helping-hands/internal/metrics"
	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
	"github.com/Olamidayoo/harvest-helping-hands/internal/repository"
)

// Sanitizer は自由入力テキストのサニタイズインターフェース。
// security.ContentSanitizerServiceを抽象化してテスタビリティを向上させる。
type Sanitizer interface {
	Sanitize(raw string) string
}

// ImageStore は寄付画像の保存インターフェース。
type ImageStore interface {
	Save(ctx context.Context, userID, ext string, data []byte) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

// RemoteImageFetcher は外部URLからの画像取得インターフェース。
type RemoteImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (data []byte, ext string, err error)
}

// EventPublisher は寄付変更イベントの配信インターフェース。
type EventPublisher interface {
	Publish(event model.DonationEvent)
}

// CreateInput は寄付作成の入力を表す。
// 画像はアップロードデータ（ImageData + ImageExt）か
// 外部URL（ImageSrcURL）のどちらか一方で指定する。
type CreateInput struct {
	FoodName      string
	Description   string
	Quantity      string
	Location      string
	ExpiryDate    *time.Time
	AvailableTime string
	ContactName   string
	ContactPhone  string
	ImageData     []byte
	ImageExt      string
	ImageSrcURL   string
}

// Service は寄付に関するビジネスロジックを提供する。
type Service struct {
	donationRepo repository.DonationRepository
	userRepo     repository.UserRepository
	profileRepo  repository.ProfileRepository
	sanitizer    Sanitizer
	imageStore   ImageStore
	remoteFetch  RemoteImageFetcher
	events       EventPublisher
	metrics      metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	donationRepo repository.DonationRepository,
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sanitizer Sanitizer,
	imageStore ImageStore,
	remoteFetch RemoteImageFetcher,
	events EventPublisher,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		donationRepo: donationRepo,
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		sanitizer:    sanitizer,
		imageStore:   imageStore,
		remoteFetch:  remoteFetch,
		events:       events,
		metrics:      collector,
	}
}

// Create は寄付を作成する。donor役割のユーザーのみ実行できる。
// 画像が指定されている場合は先に画像を保存し、失敗した場合は
// 寄付レコードを作成せずに中断する。
func (s *Service) Create(ctx context.Context, donorID string, input CreateInput) (*model.Donation, error) {
	user, err := s.userRepo.FindByID(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.Role != model.RoleDonor {
		return nil, model.NewRoleForbiddenError(model.RoleDonor)
	}

	donation := &model.Donation{
		ID:            uuid.New().String(),
		DonorID:       donorID,
		FoodName:      s.sanitizer.Sanitize(input.FoodName),
		Description:   s.sanitizer.Sanitize(input.Description),
		Quantity:      s.sanitizer.Sanitize(input.Quantity),
		Location:      s.sanitizer.Sanitize(input.Location),
		ExpiryDate:    input.ExpiryDate,
		AvailableTime: s.sanitizer.Sanitize(input.AvailableTime),
		ContactName:   s.sanitizer.Sanitize(input.ContactName),
		ContactPhone:  s.sanitizer.Sanitize(input.ContactPhone),
		Status:        model.DonationStatusPending,
	}

	if err := validateRequiredFields(donation); err != nil {
		return nil, err
	}

	imageURL, err := s.resolveImage(ctx, donorID, input)
	if err != nil {
		return nil, err
	}
	donation.ImageURL = imageURL

	now := time.Now()
	donation.CreatedAt = now
	donation.UpdatedAt = now

	if err := s.donationRepo.Create(ctx, donation); err != nil {
		// 保存済み画像を残さない（失敗してもログのみ）
		if imageURL != nil {
			if removeErr := s.imageStore.Remove(ctx, *imageURL); removeErr != nil {
				slog.Warn("failed to remove orphaned image", "url", *imageURL, "error", removeErr)
			}
		}
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}

	s.metrics.RecordDonationCreated()
	s.publishEvent(model.DonationEventInsert, donation)

	slog.Info("donation created",
		slog.String("donation_id", donation.ID),
		slog.String("donor_id", donorID),
	)

	return donation, nil
}

// Accept はボランティアが寄付の引き取りを引き受ける。
// pending状態の寄付のみ引き受けられる。2人のボランティアが同時に
// 引き受けた場合、先着側のみが成功し後着側にはDONATION_NOT_PENDINGが返る。
func (s *Service) Accept(ctx context.Context, volunteerID, donationID string) (*model.Donation, error) {
	user, err := s.userRepo.FindByID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.Role != model.RoleVolunteer {
		return nil, model.NewRoleForbiddenError(model.RoleVolunteer)
	}

	ok, err := s.donationRepo.AcceptIfPending(ctx, donationID, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept donation: %w", err)
	}
	if !ok {
		donation, err := s.donationRepo.FindByID(ctx, donationID)
		if err != nil {
			return nil, fmt.Errorf("failed to find donation: %w", err)
		}
		if donation == nil {
			return nil, model.NewDonationNotFoundError(donationID)
		}
		s.metrics.RecordAcceptConflict()
		return nil, model.NewDonationNotPendingError()
	}

	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload donation: %w", err)
	}

	s.metrics.RecordStatusTransition(string(model.DonationStatusAccepted))
	s.publishEvent(model.DonationEventUpdate, donation)

	slog.Info("donation accepted",
		slog.String("donation_id", donationID),
		slog.String("volunteer_id", volunteerID),
	)

	return donation, nil
}

// Complete は配達完了を記録する。
// 引き受けたボランティア本人、または管理者のみ実行できる。
// accepted状態の寄付のみ完了にできる。
func (s *Service) Complete(ctx context.Context, userID, donationID string) (*model.Donation, error) {
	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation: %w", err)
	}
	if donation == nil {
		return nil, model.NewDonationNotFoundError(donationID)
	}

	isAssignee := donation.VolunteerID != nil && *donation.VolunteerID == userID
	if !isAssignee {
		profile, err := s.profileRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to find profile: %w", err)
		}
		if profile == nil || !profile.IsAdmin {
			return nil, model.NewAdminRequiredError()
		}
	}

	ok, err := s.donationRepo.CompleteIfAccepted(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete donation: %w", err)
	}
	if !ok {
		return nil, model.NewDonationNotAcceptedError()
	}

	donation, err = s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload donation: %w", err)
	}

	s.metrics.RecordStatusTransition(string(model.DonationStatusCompleted))
	s.publishEvent(model.DonationEventUpdate, donation)

	slog.Info("donation completed",
		slog.String("donation_id", donationID),
		slog.String("user_id", userID),
	)

	return donation, nil
}

// List はフィルタに一致する寄付一覧を返す。認証済みユーザーが利用できる。
func (s *Service) List(ctx context.Context, filter model.DonationFilter) ([]*model.Donation, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, model.NewInvalidStatusError(string(filter.Status))
	}

	donations, err := s.donationRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return donations, nil
}

// Get は指定IDの寄付を返す。
func (s *Service) Get(ctx context.Context, donationID string) (*model.Donation, error) {
	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation: %w", err)
	}
	if donation == nil {
		return nil, model.NewDonationNotFoundError(donationID)
	}
	return donation, nil
}

// AdminList は全寄付をドナーのusername付きで返す。管理者のモデレーション用。
func (s *Service) AdminList(ctx context.Context) ([]model.DonationWithDonor, error) {
	donations, err := s.donationRepo.ListWithDonor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations with donor: %w", err)
	}
	return donations, nil
}

// AdminSetStatus は管理者が寄付の状態を任意の値に上書きする。
// 通常の状態機械を迂回するため、現在の状態にかかわらず成功する。
// 同じ状態を再設定しても冪等に成功する。
func (s *Service) AdminSetStatus(ctx context.Context, adminID, donationID string, status model.DonationStatus, volunteerID *string) (*model.Donation, error) {
	if !status.IsValid() {
		return nil, model.NewInvalidStatusError(string(status))
	}

	existing, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation: %w", err)
	}
	if existing == nil {
		return nil, model.NewDonationNotFoundError(donationID)
	}

	if err := s.donationRepo.SetStatus(ctx, donationID, status, volunteerID); err != nil {
		return nil, fmt.Errorf("failed to set donation status: %w", err)
	}

	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload donation: %w", err)
	}

	s.metrics.RecordStatusTransition(string(status))
	s.publishEvent(model.DonationEventUpdate, donation)

	slog.Info("donation status overridden",
		slog.String("donation_id", donationID),
		slog.String("admin_id", adminID),
		slog.String("status", string(status)),
	)

	return donation, nil
}

// AdminDelete は管理者が寄付を完全に削除する。
// 紐づく画像はベストエフォートで削除する（失敗してもレコード削除は成功扱い）。
func (s *Service) AdminDelete(ctx context.Context, adminID, donationID string) error {
	donation, err := s.donationRepo.FindByID(ctx, donationID)
	if err != nil {
		return fmt.Errorf("failed to find donation: %w", err)
	}
	if donation == nil {
		return model.NewDonationNotFoundError(donationID)
	}

	if err := s.donationRepo.Delete(ctx, donationID); err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}

	if donation.ImageURL != nil {
		if err := s.imageStore.Remove(ctx, *donation.ImageURL); err != nil {
			slog.Warn("failed to remove donation image", "url", *donation.ImageURL, "error", err)
		}
	}

	s.publishEvent(model.DonationEventDelete, donation)

	slog.Info("donation deleted",
		slog.String("donation_id", donationID),
		slog.String("admin_id", adminID),
	)

	return nil
}

// resolveImage は入力から画像を保存し、公開URLを返す。
// 画像が指定されていない場合はnilを返す。
func (s *Service) resolveImage(ctx context.Context, userID string, input CreateInput) (*string, error) {
	data := input.ImageData
	ext := input.ImageExt

	if len(data) == 0 && input.ImageSrcURL != "" {
		var err error
		data, ext, err = s.remoteFetch.Fetch(ctx, input.ImageSrcURL)
		if err != nil {
			s.metrics.RecordUploadFailure("remote_fetch")
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, nil
	}

	url, err := s.imageStore.Save(ctx, userID, ext, data)
	if err != nil {
		s.metrics.RecordUploadFailure("store")
		return nil, model.NewUploadFailedError("画像を保存できませんでした")
	}

	s.metrics.RecordUploadSuccess()
	return &url, nil
}

// validateRequiredFields はサニタイズ後の必須フィールドを検証する。
// タグのみの入力はサニタイズで空になるためここで弾かれる。
func validateRequiredFields(d *model.Donation) error {
	required := map[string]string{
		"food_name":     d.FoodName,
		"description":   d.Description,
		"quantity":      d.Quantity,
		"location":      d.Location,
		"contact_name":  d.ContactName,
		"contact_phone": d.ContactPhone,
	}
	for field, value := range required {
		if value == "" {
			return model.NewValidationFailedError(field + " は必須です")
		}
	}
	return nil
}

// publishEvent は寄付変更イベントを配信する。
func (s *Service) publishEvent(eventType model.DonationEventType, donation *model.Donation) {
	if donation == nil {
		return
	}
	event := model.DonationEvent{
		Type:       eventType,
		DonationID: donation.ID,
		DonorID:    donation.DonorID,
		OccurredAt: time.Now(),
	}
	if donation.VolunteerID != nil {
		event.VolunteerID = *donation.VolunteerID
	}
	s.events.Publish(event)
}
