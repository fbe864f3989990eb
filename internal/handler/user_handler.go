package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/memberhub/internal/authz"
	"github.com/hitoshi/memberhub/internal/model"
)

// UserServiceInterface は会員管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	UpdateProfile(ctx context.Context, userID, name string) (*model.User, error)
	ChangeRole(ctx context.Context, userID string, role model.Role) (*model.User, error)
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler は会員管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Name string `json:"name"`
}

// changeRoleRequest は役割変更リクエストのボディ。
type changeRoleRequest struct {
	Role string `json:"role"`
}

// ListUsers は会員一覧を返す。
// GET /api/users
// users:manage権限が必要。
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapManageUsers); err != nil {
		handleAuthzError(w, err)
		return
	}

	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetUser は会員詳細を返す。
// GET /api/users/:id
// 本人または users:manage 権限保持者のみ閲覧できる。
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "id")
	if authz.Authorize(identity, authz.CapManageUsers) != nil {
		if err := authz.AuthorizeOwner(identity, userID); err != nil {
			handleAuthzError(w, err)
			return
		}
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// UpdateProfile は会員のプロフィールを更新する。
// PATCH /api/users/:id
// 所有者チェック: 本人（または管理者）のみ実行できる。
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "id")
	if err := authz.AuthorizeOwner(identity, userID); err != nil {
		handleAuthzError(w, err)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// ChangeRole は会員の役割を変更する。
// PUT /api/users/:id/role
// users:manage権限が必要。役割は境界で検証し、未知の値は拒否する。
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapManageUsers); err != nil {
		handleAuthzError(w, err)
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRoleError(req.Role))
		return
	}

	userID := chi.URLParam(r, "id")
	user, err := h.service.ChangeRole(r.Context(), userID, role)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Withdraw は会員の退会を処理する。
// DELETE /api/users/:id
// 所有者チェック: 本人（または管理者）のみ実行できる。
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "id")
	if err := authz.AuthorizeOwner(identity, userID); err != nil {
		handleAuthzError(w, err)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
