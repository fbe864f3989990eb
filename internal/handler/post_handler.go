package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/memberhub/internal/authz"
	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/post"
)

// PostServiceInterface はブログ投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	ListPublished(ctx context.Context) ([]*model.Post, error)
	ListAll(ctx context.Context) ([]*model.Post, error)
	Get(ctx context.Context, postID string) (*model.Post, error)
	Create(ctx context.Context, authorID string, input post.PostInput) (*model.Post, error)
	Update(ctx context.Context, postID string, input post.PostInput) (*model.Post, error)
	Delete(ctx context.Context, postID string) error
}

// PostHandler はブログ投稿のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{
		service: service,
	}
}

// postRequest は投稿の作成・更新リクエストのボディ。
type postRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListPosts は公開済みの投稿一覧を返す。
// GET /api/posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPublished(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponses(posts))
}

// ListAllPosts は下書きを含む全投稿を返す。
// GET /api/posts/all
// posts:moderate権限が必要。
func (h *PostHandler) ListAllPosts(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapModeratePosts); err != nil {
		handleAuthzError(w, err)
		return
	}

	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponses(posts))
}

// GetPost は投稿詳細を返す。
// GET /api/posts/:id
// 下書きはposts:moderate権限保持者にのみ見える。
// 権限のない会員には403ではなく404を返し、下書きの存在自体を秘匿する。
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	postID := chi.URLParam(r, "id")
	p, err := h.service.Get(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !p.Published {
		if err := authz.Authorize(identity, authz.CapModeratePosts); err != nil {
			writeAPIErrorResponse(w, http.StatusNotFound, model.NewPostNotFoundError(postID))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponse(p))
}

// CreatePost は投稿を作成する。
// POST /api/posts
// posts:moderate権限が必要。
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapModeratePosts); err != nil {
		handleAuthzError(w, err)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	p, err := h.service.Create(r.Context(), identity.UserID, toPostInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPostResponse(p))
}

// UpdatePost は投稿を更新する。
// PUT /api/posts/:id
// posts:moderate権限が必要。
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapModeratePosts); err != nil {
		handleAuthzError(w, err)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	postID := chi.URLParam(r, "id")
	p, err := h.service.Update(r.Context(), postID, toPostInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPostResponse(p))
}

// DeletePost は投稿を削除する。
// DELETE /api/posts/:id
// posts:moderate権限が必要。
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapModeratePosts); err != nil {
		handleAuthzError(w, err)
		return
	}

	postID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), postID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toPostInput はリクエストからサービス層の入力に変換する。
func toPostInput(req postRequest) post.PostInput {
	return post.PostInput{
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
	}
}

// toPostResponse はmodel.PostからAPIレスポンスに変換する。
func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Body:      p.Body,
		Published: p.Published,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// toPostResponses は投稿のスライスをAPIレスポンスに変換する。
func toPostResponses(posts []*model.Post) []postResponse {
	responses := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, toPostResponse(p))
	}
	return responses
}
