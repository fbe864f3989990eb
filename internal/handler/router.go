package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/memberhub/internal/middleware"
)

// MetricsRecorder はルーター配下のミドルウェアが必要とするメトリクス記録の集合。
// metrics.Collectorが実装する。
type MetricsRecorder interface {
	middleware.AuthMetrics
	middleware.CSRFMetrics
	middleware.HTTPMetrics
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	Metrics           MetricsRecorder
	Logger            *slog.Logger
	CORSAllowedOrigin string
	HSTSEnabled       bool
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 会員
	UserService UserServiceInterface

	// 講座・受講登録
	CourseService CourseServiceInterface

	// ブログ投稿
	PostService PostServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェアスタック（外側から順に）:
//
//	CORSMiddleware → SecurityHeadersMiddleware → RecoveryMiddleware → LoggingMiddleware
//
// 認証済みルートにはさらに以下を適用する:
//
//	SessionMiddleware → CSRFMiddleware → RateLimit(GeneralMiddleware)
//
// セッション検証が先、CSRF検証が後ろ。未認証のリクエストはCSRF以前に401で弾かれる。
// ログインにはIPベースの専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTSEnabled))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	courseHandler := NewCourseHandler(deps.CourseService)
	postHandler := NewPostHandler(deps.PostService)

	// --- 認証不要のルート ---

	r.Get("/health", handleHealth)

	r.Route("/auth", func(r chi.Router) {
		// ログイン系はIPベースの専用レート制限で総当たりを抑止する
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/signup", authHandler.Signup)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier, deps.Metrics))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig, deps.Metrics))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション管理
		// 公開側で既に /auth をマウント済みのため、二重Mountを避けて直接登録する。
		r.Method(http.MethodGet, "/auth/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/logout", authHandler.Logout)

		// 会員管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Patch("/", userHandler.UpdateProfile)
				r.Delete("/", userHandler.Withdraw)
				r.Put("/role", userHandler.ChangeRole)
			})
		})

		// 講座管理・受講登録
		r.Route("/api/courses", func(r chi.Router) {
			r.Get("/", courseHandler.ListCourses)
			r.Post("/", courseHandler.CreateCourse)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", courseHandler.GetCourse)
				r.Put("/", courseHandler.UpdateCourse)
				r.Delete("/", courseHandler.DeleteCourse)
				r.Post("/register", courseHandler.Register)
				r.Delete("/register", courseHandler.Unregister)
				r.Get("/registrations", courseHandler.ListCourseRegistrations)
			})
		})

		r.Get("/api/registrations", courseHandler.ListMyRegistrations)

		// ブログ投稿
		r.Route("/api/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListPosts)
			r.Post("/", postHandler.CreatePost)
			r.Get("/all", postHandler.ListAllPosts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", postHandler.GetPost)
				r.Put("/", postHandler.UpdatePost)
				r.Delete("/", postHandler.DeletePost)
			})
		})
	})

	return r
}

// handleHealth はヘルスチェックエンドポイントのハンドラー。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
