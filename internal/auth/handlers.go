package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tdash/internal/logs"
	"tdash/internal/models"
	"tdash/internal/repo"
)

func NewHandler(svc *Service, store *repo.UserStore) *Handler {
	return &Handler{svc: svc, store: store}
}

type Handler struct {
	svc   *Service
	store *repo.UserStore
}

// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	u, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			models.WriteJSON(w, http.StatusUnauthorized, models.LoginResponse{
				Success: false,
				Message: "Invalid username or password",
			})
			return
		}
		h.internal(w, err)
		return
	}

	token, err := h.svc.IssueToken(u)
	if err != nil {
		h.internal(w, err)
		return
	}

	logs.Logger.Infof("login ok user=%s role=%s", u.Username, u.Role)
	resp := models.NewUserResponse(u)
	models.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    &resp,
	})
}

// POST /auth/refresh-token — новый токен по текущему состоянию учётки
// (свежие роль и версия).
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFrom(r)
	token, err := h.svc.IssueToken(u)
	if err != nil {
		h.internal(w, err)
		return
	}
	resp := models.NewUserResponse(u)
	models.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Success: true,
		Message: "Token refreshed",
		Token:   token,
		User:    &resp,
	})
}

// POST /auth/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFrom(r)

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if err := models.ValidatePassword(req.NewPassword); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}

	if err := h.svc.ChangePassword(r.Context(), u, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			models.WriteMessage(w, http.StatusUnauthorized, false, "Current password is incorrect")
			return
		}
		h.internal(w, err)
		return
	}
	models.WriteMessage(w, http.StatusOK, true, "Password changed successfully")
}

// GET /auth/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFrom(r)
	resp := models.NewUserResponse(u)
	models.WriteJSON(w, http.StatusOK, models.UserResult{Success: true, User: &resp})
}

// POST /auth/users (admin)
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFrom(r)

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}

	u, err := h.svc.CreateUser(r.Context(), &req, &actor.ID)
	if err != nil {
		h.writeDirectoryError(w, err)
		return
	}

	logs.Logger.Infof("user created user=%s role=%s by=%s", u.Username, u.Role, actor.Username)
	resp := models.NewUserResponse(u)
	models.WriteJSON(w, http.StatusCreated, models.UserResult{
		Success: true,
		Message: "User created successfully",
		User:    &resp,
	})
}

// GET /auth/users?skip=&limit= (admin)
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip := intQuery(r, "skip", 0)
	limit := intQuery(r, "limit", 100)

	users, err := h.store.List(r.Context(), skip, limit)
	if err != nil {
		h.internal(w, err)
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, models.NewUserResponse(&users[i]))
	}
	models.WriteJSON(w, http.StatusOK, models.UsersListResponse{
		Success: true,
		Users:   out,
		Total:   len(out),
	})
}

// GET /auth/users/{id} (admin)
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	u, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.internal(w, err)
		return
	}
	if u == nil {
		models.WriteMessage(w, http.StatusNotFound, false, "User not found")
		return
	}
	resp := models.NewUserResponse(u)
	models.WriteJSON(w, http.StatusOK, models.UserResult{Success: true, User: &resp})
}

// PUT /auth/users/{id} (admin)
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		models.WriteMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}

	u, err := h.svc.UpdateUser(r.Context(), id, &req)
	if err != nil {
		h.writeDirectoryError(w, err)
		return
	}

	resp := models.NewUserResponse(u)
	models.WriteJSON(w, http.StatusOK, models.UserResult{
		Success: true,
		Message: "User updated successfully",
		User:    &resp,
	})
}

// DELETE /auth/users/{id} (admin). Системного админа и самого себя
// удалять нельзя — это политика уровня API, не directory.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFrom(r)
	id := pathID(r)

	target, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.internal(w, err)
		return
	}
	if target == nil {
		models.WriteMessage(w, http.StatusNotFound, false, "User not found")
		return
	}
	if target.IsSystemAdmin() {
		models.WriteMessage(w, http.StatusForbidden, false, "Cannot delete system administrator account")
		return
	}
	if target.ID == actor.ID {
		models.WriteMessage(w, http.StatusForbidden, false, "Cannot delete your own account")
		return
	}

	ok, err := h.store.SoftDelete(r.Context(), id)
	if err != nil {
		h.internal(w, err)
		return
	}
	if !ok {
		models.WriteMessage(w, http.StatusNotFound, false, "User not found")
		return
	}

	logs.Logger.Infof("user deactivated user=%s by=%s", target.Username, actor.Username)
	models.WriteMessage(w, http.StatusOK, true, "User deleted successfully")
}

// writeDirectoryError маппит sentinel-ошибки directory на HTTP-статусы.
func (h *Handler) writeDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrDuplicateUsername):
		models.WriteMessage(w, http.StatusConflict, false, "Username already exists")
	case errors.Is(err, repo.ErrDuplicateEmail):
		models.WriteMessage(w, http.StatusConflict, false, "Email already exists")
	case errors.Is(err, repo.ErrSystemAdminImmutable):
		models.WriteMessage(w, http.StatusForbidden, false,
			"Cannot change system administrator username or password")
	case errors.Is(err, repo.ErrNotFound):
		models.WriteMessage(w, http.StatusNotFound, false, "User not found")
	default:
		h.internal(w, err)
	}
}

func (h *Handler) internal(w http.ResponseWriter, err error) {
	logs.Logger.Errorf("auth handler error: %v", err)
	models.WriteProblem(w, http.StatusInternalServerError,
		"Internal Server Error", "unexpected server error", nil)
}

func pathID(r *http.Request) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	return uint(id)
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
