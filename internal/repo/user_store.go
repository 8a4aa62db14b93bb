package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tdash/internal/models"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	// Попытка сменить username/пароль системного администратора.
	ErrSystemAdminImmutable = errors.New("system administrator credentials are immutable")
)

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{db: db} }

type CreateUserInput struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         models.Role
	CreatedBy    *uint // nil — системная учётка
}

// Create заводит учётку. Проверка дублей до вставки — для внятного
// сообщения; гонку между проверкой и вставкой закрывает unique-индекс
// (ErrDuplicatedKey разбирается повторным запросом).
func (s *UserStore) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	tx := s.db.WithContext(ctx)

	var n int64
	if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDuplicateUsername
	}
	if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDuplicateEmail
	}

	u := models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		IsActive:     true,
		CreatedBy:    in.CreatedBy,
	}
	if err := tx.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Вторая сторона гонки: выясняем, какой индекс сработал.
			var m int64
			if e := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&m).Error; e == nil && m > 0 {
				return nil, ErrDuplicateUsername
			}
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// FindByUsername — отсутствие записи это (nil, nil), не ошибка.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UpdateUserInput struct {
	Username     *string
	Email        *string
	FullName     *string
	PasswordHash *string
	Role         *models.Role
	IsActive     *bool
}

// Update — PATCH-семантика: применяются только непустые поля.
// Для системного админа смена username/пароля запрещена; email и
// full_name менять можно.
func (s *UserStore) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	tx := s.db.WithContext(ctx)

	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	if u.IsSystemAdmin() && (in.Username != nil || in.PasswordHash != nil) {
		return nil, ErrSystemAdminImmutable
	}

	if in.Username != nil && *in.Username != u.Username {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", *in.Username, id).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrDuplicateUsername
		}
		u.Username = *in.Username
	}
	if in.Email != nil && *in.Email != u.Email {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", *in.Email, id).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrDuplicateEmail
		}
		u.Email = *in.Email
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.PasswordHash != nil {
		u.PasswordHash = *in.PasswordHash
		u.TokenVersion++ // старые токены умирают вместе со старым паролем
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		if !*in.IsActive && u.IsActive {
			u.TokenVersion++
		}
		u.IsActive = *in.IsActive
	}

	if err := tx.Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return u, nil
}

// SoftDelete гасит is_active; запись остаётся в таблице навсегда.
// false — учётки нет (не ошибка).
func (s *UserStore) SoftDelete(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":     false,
			"token_version": gorm.Expr("token_version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List возвращает только активные учётки, новые первыми.
func (s *UserStore) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// UpdatePassword — self-service смена пароля (в обход directory-update,
// поэтому без проверки системного админа). Версия токена растёт.
func (s *UserStore) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash": hash,
			"token_version": gorm.Expr("token_version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastLogin — side effect успешного authenticate.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}
