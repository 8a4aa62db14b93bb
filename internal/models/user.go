package models

import (
	"time"
)

// Role — закрытый enum ролей дашборда.
// Иерархия: admin > operator > executive > visitor.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOperator  Role = "operator"
	RoleExecutive Role = "executive"
	RoleVisitor   Role = "visitor"
)

// Rank возвращает числовой ранг роли для сравнения прав.
// Неизвестная роль — ранг 0, ни одну проверку не проходит.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleOperator:
		return 3
	case RoleExecutive:
		return 2
	case RoleVisitor:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool { return r.Rank() > 0 }

// ParseRole валидирует строку роли на границе API.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// User — учётная запись дашборда.
// Уникальность username/email закрывается индексами БД (гонка create/create).
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	FullName  string     `gorm:"size:100;not null" json:"full_name"`
	// Хэш bcrypt; в JSON не отдаём никогда.
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         Role   `gorm:"size:32;not null;default:visitor" json:"role"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
	// Версия токена: инкремент инвалидирует все выданные JWT аккаунта.
	TokenVersion int        `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
	// nil — учётка создана системой при старте (bootstrap-админ).
	CreatedBy *uint `json:"created_by"`
}

// IsSystemAdmin — системный админ: создан без creator и с высшей ролью.
// Его username/пароль неизменяемы через directory-путь.
func (u *User) IsSystemAdmin() bool {
	return u.CreatedBy == nil && u.Role == RoleAdmin
}
