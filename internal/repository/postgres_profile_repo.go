package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, is_admin, created_at, updated_at FROM profiles WHERE id = $1`,
		id,
	).Scan(&profile.ID, &profile.Username, &profile.IsAdmin, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return profile, nil
}

// UpdateUsername は表示名を更新する。
func (r *PostgresProfileRepo) UpdateUsername(ctx context.Context, id, username string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET username = $2, updated_at = $3 WHERE id = $1`,
		id, username, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", id)
	}
	return nil
}

// SetAdmin は管理者フラグを設定する。
func (r *PostgresProfileRepo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_admin = $2, updated_at = $3 WHERE id = $1`,
		id, isAdmin, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", id)
	}
	return nil
}

// List は全プロフィールをcreated_at降順で返す。
func (r *PostgresProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, is_admin, created_at, updated_at
		 FROM profiles
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile := &model.Profile{}
		if err := rows.Scan(&profile.ID, &profile.Username, &profile.IsAdmin, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
