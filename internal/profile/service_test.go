package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

type mockProfileRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Profile, error)
	updateUsernameFn func(ctx context.Context, id, username string) error
	setAdminFn       func(ctx context.Context, id string, isAdmin bool) error
	listFn           func(ctx context.Context) ([]*model.Profile, error)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockProfileRepo) UpdateUsername(ctx context.Context, id, username string) error {
	return m.updateUsernameFn(ctx, id, username)
}

func (m *mockProfileRepo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	return m.setAdminFn(ctx, id, isAdmin)
}

func (m *mockProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	return m.listFn(ctx)
}

type trimSanitizer struct{}

func (trimSanitizer) Sanitize(raw string) string {
	raw = strings.ReplaceAll(raw, "<b>", "")
	raw = strings.ReplaceAll(raw, "</b>", "")
	return strings.TrimSpace(raw)
}

// 表示名の更新が成功すること
func TestUpdateUsername_Success(t *testing.T) {
	var savedName string
	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, Username: savedName}, nil
		},
		updateUsernameFn: func(ctx context.Context, id, username string) error {
			savedName = username
			return nil
		},
	}
	service := NewService(repo, trimSanitizer{})

	_, err := service.UpdateUsername(context.Background(), "user-1", "新しい名前")
	if err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}
	if savedName != "新しい名前" {
		t.Errorf("saved username = %q, want %q", savedName, "新しい名前")
	}
}

// タグを含む表示名がサニタイズされること
func TestUpdateUsername_Sanitizes(t *testing.T) {
	var savedName string
	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id}, nil
		},
		updateUsernameFn: func(ctx context.Context, id, username string) error {
			savedName = username
			return nil
		},
	}
	service := NewService(repo, trimSanitizer{})

	_, err := service.UpdateUsername(context.Background(), "user-1", "<b>name</b>")
	if err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}
	if savedName != "name" {
		t.Errorf("saved username = %q, want %q", savedName, "name")
	}
}

// 空の表示名が拒否されること
func TestUpdateUsername_EmptyRejected(t *testing.T) {
	service := NewService(&mockProfileRepo{}, trimSanitizer{})

	_, err := service.UpdateUsername(context.Background(), "user-1", "   ")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
}

// 長すぎる表示名が拒否されること
func TestUpdateUsername_TooLongRejected(t *testing.T) {
	service := NewService(&mockProfileRepo{}, trimSanitizer{})

	_, err := service.UpdateUsername(context.Background(), "user-1", strings.Repeat("あ", maxUsernameLength+1))

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
}

// 存在しないユーザーの表示名更新でUSER_NOT_FOUNDになること
func TestUpdateUsername_NotFound(t *testing.T) {
	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return nil, nil
		},
	}
	service := NewService(repo, trimSanitizer{})

	_, err := service.UpdateUsername(context.Background(), "missing", "name")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// ユーザー一覧が返ること
func TestListUsers(t *testing.T) {
	repo := &mockProfileRepo{
		listFn: func(ctx context.Context) ([]*model.Profile, error) {
			return []*model.Profile{
				{ID: "user-1", Username: "alpha"},
				{ID: "user-2", Username: "beta", IsAdmin: true},
			}, nil
		},
	}
	service := NewService(repo, trimSanitizer{})

	profiles, err := service.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("len(profiles) = %d, want 2", len(profiles))
	}
}

// 管理者フラグの付与と剥奪が冪等に成功すること
func TestSetAdmin_Idempotent(t *testing.T) {
	isAdmin := false
	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, IsAdmin: isAdmin}, nil
		},
		setAdminFn: func(ctx context.Context, id string, v bool) error {
			isAdmin = v
			return nil
		},
	}
	service := NewService(repo, trimSanitizer{})

	for i := 0; i < 2; i++ {
		profile, err := service.SetAdmin(context.Background(), "admin-1", "user-1", true)
		if err != nil {
			t.Fatalf("SetAdmin() call %d error = %v", i+1, err)
		}
		if !profile.IsAdmin {
			t.Error("expected IsAdmin to be true")
		}
	}

	profile, err := service.SetAdmin(context.Background(), "admin-1", "user-1", false)
	if err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	if profile.IsAdmin {
		t.Error("expected IsAdmin to be false")
	}
}

// 存在しないユーザーへの管理者フラグ変更でUSER_NOT_FOUNDになること
func TestSetAdmin_NotFound(t *testing.T) {
	repo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return nil, nil
		},
	}
	service := NewService(repo, trimSanitizer{})

	_, err := service.SetAdmin(context.Background(), "admin-1", "missing", true)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}
