package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// ProfileFinder は管理者判定に必要なインターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// NewRequireAdminMiddleware は管理者専用エンドポイントを保護するミドルウェアを返す。
// 管理者判定はキャッシュせず、リクエストごとにprofilesテーブルを参照する。
// 権限がない場合はリダイレクトではなく403と説明付きレスポンスを返す。
// SessionMiddlewareの後に配置すること。
func NewRequireAdminMiddleware(profileFinder ProfileFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			profile, err := profileFinder.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find profile for admin check",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if profile == nil || !profile.IsAdmin {
				slog.Warn("admin access denied",
					slog.String("user_id", userID),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewAdminRequiredError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
