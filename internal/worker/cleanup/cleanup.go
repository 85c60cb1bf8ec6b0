// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 有効期限を過ぎたセッションと、保持期間を超えたキャンセル済み寄付を
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	retentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionDaysはキャンセル済み寄付の保持日数。
func NewCleanupJob(db Executor, logger *slog.Logger, retentionDays int) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// Run は有効期限を過ぎたセッションと保持期間を超えたキャンセル済み寄付を削除する。
// セッションミドルウェアは期限切れセッションを拒否するため、
// セッション側の削除はストレージの肥大化を防ぐ掃除役に徹する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionQuery := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, sessionQuery)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deletedSessions, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	donationQuery := `DELETE FROM donations WHERE status = 'cancelled' AND created_at < now() - ($1 * interval '1 day')`
	result, err = j.db.ExecContext(ctx, donationQuery, j.retentionDays)
	if err != nil {
		j.logger.Error("キャンセル済み寄付クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("キャンセル済み寄付クリーンアップの実行に失敗: %w", err)
	}

	deletedDonations, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedSessions),
		slog.Int64("deleted_donations", deletedDonations),
		slog.Int("retention_days", j.retentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
