package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/memberhub/internal/authz"
	"github.com/hitoshi/memberhub/internal/course"
	"github.com/hitoshi/memberhub/internal/model"
)

// CourseServiceInterface は講座ハンドラーが必要とするサービスインターフェース。
type CourseServiceInterface interface {
	List(ctx context.Context) ([]*model.Course, error)
	Get(ctx context.Context, courseID string) (*model.Course, error)
	Create(ctx context.Context, input course.CourseInput) (*model.Course, error)
	Update(ctx context.Context, courseID string, input course.CourseInput) (*model.Course, error)
	Delete(ctx context.Context, courseID string) error
	Register(ctx context.Context, userID, courseID string) (*model.Registration, error)
	Unregister(ctx context.Context, userID, courseID string) error
	ListMyRegistrations(ctx context.Context, userID string) ([]*model.Registration, error)
	ListCourseRegistrations(ctx context.Context, courseID string) ([]*model.Registration, error)
}

// CourseHandler は講座と受講登録のHTTPハンドラー。
type CourseHandler struct {
	service CourseServiceInterface
}

// NewCourseHandler はCourseHandlerを生成する。
func NewCourseHandler(service CourseServiceInterface) *CourseHandler {
	return &CourseHandler{
		service: service,
	}
}

// courseRequest は講座の作成・更新リクエストのボディ。
type courseRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
}

// courseResponse は講座情報のAPIレスポンス。
type courseResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// registrationResponse は受講登録のAPIレスポンス。
type registrationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListCourses は講座一覧を返す。
// GET /api/courses
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		responses = append(responses, toCourseResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetCourse は講座詳細を返す。
// GET /api/courses/:id
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	c, err := h.service.Get(r.Context(), courseID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCourseResponse(c))
}

// CreateCourse は講座を作成する。
// POST /api/courses
// courses:manage権限が必要。
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapManageCourses); err != nil {
		handleAuthzError(w, err)
		return
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	c, err := h.service.Create(r.Context(), toCourseInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCourseResponse(c))
}

// UpdateCourse は講座を更新する。
// PUT /api/courses/:id
// courses:manage権限が必要。
func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapManageCourses); err != nil {
		handleAuthzError(w, err)
		return
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	courseID := chi.URLParam(r, "id")
	c, err := h.service.Update(r.Context(), courseID, toCourseInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCourseResponse(c))
}

// DeleteCourse は講座を削除する。
// DELETE /api/courses/:id
// courses:manage権限が必要。
func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapManageCourses); err != nil {
		handleAuthzError(w, err)
		return
	}

	courseID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), courseID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Register は自分自身の受講登録を作成する。
// POST /api/courses/:id/register
// 登録対象のユーザーIDはリクエストからではなくセッションのIdentityから決定する。
func (h *CourseHandler) Register(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	courseID := chi.URLParam(r, "id")
	reg, err := h.service.Register(r.Context(), identity.UserID, courseID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRegistrationResponse(reg))
}

// Unregister は自分自身の受講登録を解除する。
// DELETE /api/courses/:id/register
func (h *CourseHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	courseID := chi.URLParam(r, "id")
	if err := h.service.Unregister(r.Context(), identity.UserID, courseID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCourseRegistrations は講座ごとの受講登録一覧を返す。
// GET /api/courses/:id/registrations
// registrations:view権限が必要。
func (h *CourseHandler) ListCourseRegistrations(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := authz.Authorize(identity, authz.CapViewRegistrations); err != nil {
		handleAuthzError(w, err)
		return
	}

	courseID := chi.URLParam(r, "id")
	regs, err := h.service.ListCourseRegistrations(r.Context(), courseID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRegistrationResponses(regs))
}

// ListMyRegistrations は自分の受講登録一覧を返す。
// GET /api/registrations
func (h *CourseHandler) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	regs, err := h.service.ListMyRegistrations(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRegistrationResponses(regs))
}

// --- ヘルパー関数 ---

// toCourseInput はリクエストからサービス層の入力に変換する。
func toCourseInput(req courseRequest) course.CourseInput {
	return course.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		Capacity:    req.Capacity,
		StartsAt:    req.StartsAt,
	}
}

// toCourseResponse はmodel.CourseからAPIレスポンスに変換する。
func toCourseResponse(c *model.Course) courseResponse {
	return courseResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Capacity:    c.Capacity,
		StartsAt:    c.StartsAt,
		CreatedAt:   c.CreatedAt,
	}
}

// toRegistrationResponse はmodel.RegistrationからAPIレスポンスに変換する。
func toRegistrationResponse(reg *model.Registration) registrationResponse {
	return registrationResponse{
		ID:        reg.ID,
		UserID:    reg.UserID,
		CourseID:  reg.CourseID,
		CreatedAt: reg.CreatedAt,
	}
}

// toRegistrationResponses は受講登録のスライスをAPIレスポンスに変換する。
func toRegistrationResponses(regs []*model.Registration) []registrationResponse {
	responses := make([]registrationResponse, 0, len(regs))
	for _, reg := range regs {
		responses = append(responses, toRegistrationResponse(reg))
	}
	return responses
}
