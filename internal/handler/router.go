package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Olamidayoo/harvest-helping-hands/internal/metrics"
	"github.com/Olamidayoo/harvest-helping-hands/internal/middleware"
)

// HealthChecker はDB接続の死活確認インターフェース。*sql.DBが実装する。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker      HealthChecker
	SessionFinder      middleware.SessionFinder
	AdminProfileFinder middleware.ProfileFinder
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	CSRFConfig         middleware.CSRFConfig
	Logger             *slog.Logger
	HTTPStatusRecorder middleware.HTTPStatusRecorder

	// メトリクス公開（nilの場合は/metricsを公開しない）
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 寄付
	DonationService      DonationServiceInterface
	AdminDonationService AdminDonationServiceInterface

	// プロフィール
	ProfileService   ProfileServiceInterface
	AdminUserService AdminUserServiceInterface

	// リアルタイム通知
	EventHub        EventSubscriber
	SubscriberGauge SubscriberGauge

	// アップロード画像の配信ディレクトリ（空の場合は配信しない）
	UploadDir string

	// multipartフォーム全体の受け付け上限（0の場合はデフォルト値）
	UploadMaxBytes int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → (HTTPMetrics)
//
// 認証が必要なルートはさらに Session → CSRF → RateLimit(General) を通る。
// 管理者ルートは加えて RequireAdmin を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.HTTPStatusRecorder != nil {
		r.Use(middleware.NewHTTPMetricsMiddleware(deps.HTTPStatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	donationHandler := NewDonationHandler(deps.DonationService)
	if deps.UploadMaxBytes > 0 {
		donationHandler.maxUploadBytes = deps.UploadMaxBytes
	}
	profileHandler := NewProfileHandler(deps.ProfileService)
	adminHandler := NewAdminHandler(deps.AdminDonationService, deps.AdminUserService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	// Prometheusメトリクス
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// CSRFトークン取得
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// サインアップ・ログイン
	r.Post("/api/auth/signup", authHandler.SignUp)
	r.Post("/api/auth/login", authHandler.SignIn)
	r.Post("/api/auth/logout", authHandler.SignOut)

	// アップロード画像の静的配信
	if deps.UploadDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 現在ユーザー・役割選択
		r.Get("/api/auth/me", authHandler.Me)
		r.Put("/api/session/role", authHandler.SetRole)

		// プロフィール
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/username", profileHandler.UpdateUsername)
		})

		// 寄付管理
		r.Route("/api/donations", func(r chi.Router) {
			r.Get("/", donationHandler.List)

			// POST /api/donations - 寄付作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.DonationCreationMiddleware()).Post("/", donationHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", donationHandler.Get)
				r.Post("/accept", donationHandler.Accept)
				r.Post("/complete", donationHandler.Complete)
			})
		})

		// 変更通知ストリーム
		if deps.EventHub != nil {
			eventsHandler := NewEventsHandler(deps.EventHub, deps.SubscriberGauge)
			r.Get("/api/events", eventsHandler.Stream)
		}

		// --- 管理者ルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAdminMiddleware(deps.AdminProfileFinder))

			r.Route("/api/admin", func(r chi.Router) {
				r.Get("/donations", adminHandler.ListDonations)
				r.Route("/donations/{id}", func(r chi.Router) {
					r.Patch("/status", adminHandler.SetStatus)
					r.Delete("/", adminHandler.DeleteDonation)
				})

				r.Get("/users", adminHandler.ListUsers)
				r.Put("/users/{id}/admin", adminHandler.SetAdmin)
			})
		})
	})

	return r
}
