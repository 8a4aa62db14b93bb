package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tdash/internal/models"
	"tdash/internal/repo"
)

var (
	// Неверный логин, несуществующая или выключенная учётка — один и
	// тот же ответ, чтобы не раскрывать, что именно не совпало.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInactiveAccount    = errors.New("inactive account")
)

const DefaultTokenTTL = 30 * time.Minute

// Заранее посчитанный bcrypt-хэш: по нему прогоняется сравнение, когда
// учётки нет, чтобы оба пути отказа стоили одинаково по времени.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Claims — полезная нагрузка JWT: роль и версия токена поверх
// стандартных регистрируемых полей (sub=username, exp, iat, iss).
type Claims struct {
	Role    models.Role `json:"role"`
	Version int         `json:"ver"`
	jwt.RegisteredClaims
}

// Service превращает пару username/password в подписанный токен и обратно.
type Service struct {
	store  *repo.UserStore
	secret []byte
	ttl    time.Duration
}

func NewService(store *repo.UserStore, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl}
}

// Authenticate проверяет логин/пароль и обновляет last_login.
// Все варианты отказа сведены к ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		CheckPassword(password, dummyHash) // выравнивание тайминга
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.store.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	return u, nil
}

// IssueToken подписывает HS256-токен с текущими ролью и версией учётки.
func (s *Service) IssueToken(u *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:    u.Role,
		Version: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "tdash",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken разбирает и проверяет подпись/срок токена.
// Состояние учётки здесь не проверяется — это делает middleware
// свежим запросом в store.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ResolveAccount — свежая проверка учётки по claims проверенного
// токена: исчезнувшая, выключенная или сменившая версию (смена пароля,
// деактивация) учётка гасит токен досрочно.
func (s *Service) ResolveAccount(ctx context.Context, claims *Claims) (*models.User, error) {
	u, err := s.store.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil || u.TokenVersion != claims.Version {
		return nil, ErrInvalidToken
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return u, nil
}

// HasPermission — true, если ранг роли не ниже требуемого.
func HasPermission(role, required models.Role) bool {
	return role.Rank() >= required.Rank()
}

// CreateUser хэширует пароль и заводит учётку через directory.
func (s *Service) CreateUser(ctx context.Context, req *models.CreateUserRequest, createdBy *uint) (*models.User, error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, repo.CreateUserInput{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedBy:    createdBy,
	})
}

// UpdateUser — PATCH учётки; пароль (если задан) хэшируется здесь.
func (s *Service) UpdateUser(ctx context.Context, id uint, req *models.UpdateUserRequest) (*models.User, error) {
	in := repo.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: req.IsActive,
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		in.PasswordHash = &hash
	}
	return s.store.Update(ctx, id, in)
}

// ChangePassword — self-service смена пароля: проверка текущего,
// запись нового хэша, инкремент версии (старые токены гаснут).
// Этот путь не входит в directory-update, поэтому доступен и
// системному администратору.
func (s *Service) ChangePassword(ctx context.Context, u *models.User, current, next string) error {
	if !CheckPassword(current, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, u.ID, hash)
}
