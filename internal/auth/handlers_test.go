package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdash/internal/models"
	"tdash/internal/repo"
)

type testEnv struct {
	router *mux.Router
	store  *repo.UserStore
	svc    *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore(t)
	svc := NewService(store, testSecret, DefaultTokenTTL)
	require.NoError(t, EnsureSystemAdmin(context.Background(), store, "root", "correctpw"))

	r := mux.NewRouter().StrictSlash(true)
	RegisterRoutes(r, svc, store)
	return &testEnv{router: r, store: store, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func (e *testEnv) login(t *testing.T, username, password string) models.LoginResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/login", "",
		models.LoginRequest{Username: username, Password: password})
	return decode[models.LoginResponse](t, w)
}

// Сквозной сценарий: bootstrap-админ, неверный и верный логин,
// листинг, запрет переименования системного админа.
func TestLoginAndAdminFlow(t *testing.T) {
	e := newTestEnv(t)

	// неверный пароль
	w := e.do(t, http.MethodPost, "/auth/login", "",
		models.LoginRequest{Username: "root", Password: "wrongpw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decode[models.LoginResponse](t, w)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Token)

	// верный
	login := e.login(t, "root", "correctpw")
	require.True(t, login.Success)
	require.NotEmpty(t, login.Token)
	require.NotNil(t, login.User)
	assert.True(t, login.User.IsSystemAdmin)

	// листинг с токеном
	w = e.do(t, http.MethodGet, "/auth/users", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.UsersListResponse](t, w)
	require.True(t, list.Success)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "root", list.Users[0].Username)

	// переименовать системного админа нельзя
	w = e.do(t, http.MethodPut, fmt.Sprintf("/auth/users/%d", login.User.ID), login.Token,
		map[string]any{"username": "root2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	msg := decode[models.MessageResponse](t, w)
	assert.False(t, msg.Success)
	assert.Contains(t, msg.Message, "Cannot change system administrator")

	// а email/имя — можно
	w = e.do(t, http.MethodPut, fmt.Sprintf("/auth/users/%d", login.User.ID), login.Token,
		map[string]any{"full_name": "Head of Terminal"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)

	// без токена
	w := e.do(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// мусорный токен
	w = e.do(t, http.MethodGet, "/auth/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGate(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")

	w := e.do(t, http.MethodPost, "/auth/users", admin.Token, models.CreateUserRequest{
		Username: "viewer",
		Email:    "viewer@terminal.local",
		FullName: "Just Looking",
		Password: "viewer123",
		Role:     models.RoleVisitor,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	visitor := e.login(t, "viewer", "viewer123")
	require.True(t, visitor.Success)

	// visitor до admin-эндпоинтов не дотягивается
	w = e.do(t, http.MethodGet, "/auth/users", visitor.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// но профиль свой видит
	w = e.do(t, http.MethodGet, "/auth/profile", visitor.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	profile := decode[models.UserResult](t, w)
	assert.Equal(t, "viewer", profile.User.Username)
}

func TestCreateUserValidationAndDuplicates(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")

	// короткий пароль
	w := e.do(t, http.MethodPost, "/auth/users", admin.Token, models.CreateUserRequest{
		Username: "shorty", Email: "shorty@terminal.local", FullName: "S", Password: "123", Role: models.RoleVisitor,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// неизвестная роль
	w = e.do(t, http.MethodPost, "/auth/users", admin.Token, map[string]any{
		"username": "weird", "email": "weird@terminal.local", "full_name": "W",
		"password": "weird123", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ok := models.CreateUserRequest{
		Username: "oper", Email: "oper@terminal.local", FullName: "Operator",
		Password: "oper1234", Role: models.RoleOperator,
	}
	w = e.do(t, http.MethodPost, "/auth/users", admin.Token, ok)
	require.Equal(t, http.StatusCreated, w.Code)

	// дубль username
	dup := ok
	dup.Email = "other@terminal.local"
	w = e.do(t, http.MethodPost, "/auth/users", admin.Token, dup)
	assert.Equal(t, http.StatusConflict, w.Code)

	// дубль email
	dup = ok
	dup.Username = "oper2"
	w = e.do(t, http.MethodPost, "/auth/users", admin.Token, dup)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeletePolicies(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")

	w := e.do(t, http.MethodPost, "/auth/users", admin.Token, models.CreateUserRequest{
		Username: "victim", Email: "victim@terminal.local", FullName: "V",
		Password: "victim123", Role: models.RoleVisitor,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.UserResult](t, w)

	// системного админа удалять нельзя
	w = e.do(t, http.MethodDelete, fmt.Sprintf("/auth/users/%d", admin.User.ID), admin.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// обычного — можно
	w = e.do(t, http.MethodDelete, fmt.Sprintf("/auth/users/%d", created.User.ID), admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// после soft delete логин с верным паролем отклоняется
	login := e.login(t, "victim", "victim123")
	assert.False(t, login.Success)

	// и в листинге активных его нет
	w = e.do(t, http.MethodGet, "/auth/users", admin.Token, nil)
	list := decode[models.UsersListResponse](t, w)
	for _, u := range list.Users {
		assert.NotEqual(t, "victim", u.Username)
	}

	// повторное удаление — 404
	w = e.do(t, http.MethodDelete, fmt.Sprintf("/auth/users/%d", created.User.ID), admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelfDeleteForbidden(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")

	w := e.do(t, http.MethodPost, "/auth/users", admin.Token, models.CreateUserRequest{
		Username: "admin2", Email: "admin2@terminal.local", FullName: "Second Admin",
		Password: "admin234", Role: models.RoleAdmin,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	second := e.login(t, "admin2", "admin234")
	w = e.do(t, http.MethodDelete, fmt.Sprintf("/auth/users/%d", second.User.ID), second.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	msg := decode[models.MessageResponse](t, w)
	assert.Contains(t, msg.Message, "own account")
}

// Смена пароля гасит ранее выданные токены (версия в claims).
func TestChangePasswordInvalidatesOldTokens(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")
	oldToken := admin.Token

	w := e.do(t, http.MethodPost, "/auth/change-password", oldToken,
		models.ChangePasswordRequest{CurrentPassword: "correctpw", NewPassword: "evenbetterpw"})
	require.Equal(t, http.StatusOK, w.Code)

	// старый токен больше не работает
	w = e.do(t, http.MethodGet, "/auth/profile", oldToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// старый пароль тоже
	login := e.login(t, "root", "correctpw")
	assert.False(t, login.Success)

	// новый логин — новый рабочий токен
	login = e.login(t, "root", "evenbetterpw")
	require.True(t, login.Success)
	w = e.do(t, http.MethodGet, "/auth/profile", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshToken(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")

	w := e.do(t, http.MethodPost, "/auth/refresh-token", admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[models.LoginResponse](t, w)
	require.True(t, refreshed.Success)
	require.NotEmpty(t, refreshed.Token)

	w = e.do(t, http.MethodGet, "/auth/profile", refreshed.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeactivatedAccountTokenRejected(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, "root", "correctpw")

	w := e.do(t, http.MethodPost, "/auth/users", admin.Token, models.CreateUserRequest{
		Username: "temp", Email: "temp@terminal.local", FullName: "T",
		Password: "temp1234", Role: models.RoleOperator,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.UserResult](t, w)

	temp := e.login(t, "temp", "temp1234")
	require.True(t, temp.Success)

	// деактивация через PATCH is_active=false
	w = e.do(t, http.MethodPut, fmt.Sprintf("/auth/users/%d", created.User.ID), admin.Token,
		map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)

	// выданный до этого токен мёртв
	w = e.do(t, http.MethodGet, "/auth/profile", temp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
