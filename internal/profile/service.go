// Package profile はプロフィール管理のドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
	"github.com/Olamidayoo/harvest-helping-hands/internal/repository"
)

// maxUsernameLength は表示名の最大文字数。
const maxUsernameLength = 50

// Sanitizer は自由入力テキストのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service はプロフィールに関するビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	sanitizer   Sanitizer
}

// NewService はServiceを生成する。
func NewService(profileRepo repository.ProfileRepository, sanitizer Sanitizer) *Service {
	return &Service{
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
	}
}

// Get は指定ユーザーのプロフィールを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}
	return profile, nil
}

// UpdateUsername は本人の表示名を更新する。
func (s *Service) UpdateUsername(ctx context.Context, userID, username string) (*model.Profile, error) {
	username = s.sanitizer.Sanitize(username)
	if username == "" {
		return nil, model.NewValidationFailedError("username は必須です")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, model.NewValidationFailedError(fmt.Sprintf("username は%d文字以内で入力してください", maxUsernameLength))
	}

	existing, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.profileRepo.UpdateUsername(ctx, userID, username); err != nil {
		return nil, fmt.Errorf("failed to update username: %w", err)
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}

	slog.Info("username updated", slog.String("user_id", userID))

	return profile, nil
}

// ListUsers は全ユーザーのプロフィール一覧を返す。管理者のユーザー管理用。
func (s *Service) ListUsers(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// SetAdmin は管理者が指定ユーザーの管理者フラグを変更する。
// 同じ値を再設定しても冪等に成功する。
func (s *Service) SetAdmin(ctx context.Context, adminID, targetID string, isAdmin bool) (*model.Profile, error) {
	existing, err := s.profileRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if existing == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.profileRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, fmt.Errorf("failed to set admin flag: %w", err)
	}

	profile, err := s.profileRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}

	slog.Info("admin flag updated",
		slog.String("target_id", targetID),
		slog.String("admin_id", adminID),
		slog.Bool("is_admin", isAdmin),
	)

	return profile, nil
}
