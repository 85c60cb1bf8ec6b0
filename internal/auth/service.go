// Package auth はメール・パスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
	"github.com/Olamidayoo/harvest-helping-hands/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// SignUp は新規ユーザーを登録し、セッションを発行する。
// usersレコードとprofilesレコードを同一トランザクションで作成する。
// roleが指定されている場合（サインアップ前に役割を選択していた場合）は
// 作成時に反映する。
func (s *Service) SignUp(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, model.NewValidationFailedError("メールアドレスが不正です")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, model.NewValidationFailedError("パスワードは6文字以上で入力してください")
	}

	if role != "" && !role.IsValid() {
		return nil, nil, model.NewInvalidRoleError(string(role))
	}

	// メールアドレスの重複チェック
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewEmailTakenError()
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &model.Profile{
		ID:        user.ID,
		Username:  usernameFromEmail(email),
		IsAdmin:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, nil, fmt.Errorf("failed to create user and profile: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
	)

	return user, session, nil
}

// SignIn はメールアドレスとパスワードでログインし、セッションを発行する。
// メールアドレスの存在有無と不一致を区別せずに同一エラーを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))

	return user, session, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser は指定IDの現在のユーザーとプロフィールを取得する。
// セッション確立時のユーザー情報読み込みに使用する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, *model.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	return user, profile, nil
}

// SetRole はユーザーの役割タグを更新する。
// 役割はサーバー側のusersレコードを唯一の正とする。
// 同じ役割を再設定しても何度でも成功する（冪等）。
func (s *Service) SetRole(ctx context.Context, userID string, role model.Role) error {
	if !role.IsValid() {
		return model.NewInvalidRoleError(string(role))
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	slog.Info("user role updated",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// usernameFromEmail はメールアドレスのローカル部を初期表示名として返す。
func usernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
