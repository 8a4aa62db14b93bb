package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Запросы/ответы REST-слоя. Указатели в Update* — PATCH-семантика:
// nil-поле не трогаем.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserResponse — проекция User наружу (без хэша, с вычисляемым is_system_admin).
type UserResponse struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          Role       `json:"role"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedBy     *uint      `json:"created_by"`
	IsSystemAdmin bool       `json:"is_system_admin"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          u.Role,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
		CreatedBy:     u.CreatedBy,
		IsSystemAdmin: u.IsSystemAdmin(),
	}
}

type LoginResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Token   string        `json:"token,omitempty"`
	User    *UserResponse `json:"user,omitempty"`
}

type UsersListResponse struct {
	Success bool           `json:"success"`
	Users   []UserResponse `json:"users"`
	Total   int            `json:"total"`
}

type UserResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	User    *UserResponse `json:"user,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DashboardResponse — единый конверт для /api/dashboard/*.
type DashboardResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	Stale     bool   `json:"stale,omitempty"`
}

const MinPasswordLen = 6

// ValidateUsername — ≥3 символов; буквы/цифры/точка/подчёркивание.
func ValidateUsername(v string) error {
	if len(v) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	stripped := strings.NewReplacer("_", "", ".", "").Replace(v)
	for _, c := range stripped {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return fmt.Errorf("username can only contain letters, numbers, dots, and underscores")
		}
	}
	return nil
}

func ValidatePassword(v string) error {
	if len(v) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}

func ValidateEmail(v string) error {
	if _, err := mail.ParseAddress(v); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func (r *CreateUserRequest) Validate() error {
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if !r.Role.Valid() {
		return fmt.Errorf("unknown role: %s", r.Role)
	}
	return nil
}

func (r *UpdateUserRequest) Validate() error {
	if r.Username != nil {
		if err := ValidateUsername(*r.Username); err != nil {
			return err
		}
	}
	if r.Email != nil {
		if err := ValidateEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.Password != nil {
		if err := ValidatePassword(*r.Password); err != nil {
			return err
		}
	}
	if r.Role != nil && !r.Role.Valid() {
		return fmt.Errorf("unknown role: %s", *r.Role)
	}
	return nil
}
