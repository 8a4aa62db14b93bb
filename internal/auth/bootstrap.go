package auth

import (
	"context"
	"fmt"

	"tdash/internal/logs"
	"tdash/internal/models"
	"tdash/internal/repo"
)

// EnsureSystemAdmin заводит системного администратора из конфига
// деплоя, если его ещё нет. CreatedBy=nil помечает учётку как
// системную: её username/пароль дальше через directory не меняются.
func EnsureSystemAdmin(ctx context.Context, store *repo.UserStore, username, password string) error {
	if username == "" || password == "" {
		logs.Logger.Warn("auth.admin_username/admin_password not set, skipping system admin bootstrap")
		return nil
	}
	if err := models.ValidatePassword(password); err != nil {
		return fmt.Errorf("system admin bootstrap: %w", err)
	}

	existing, err := store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		logs.Logger.Infof("system admin already exists: %s", username)
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := store.Create(ctx, repo.CreateUserInput{
		Username:     username,
		Email:        fmt.Sprintf("%s@terminal.local", username),
		FullName:     "System Administrator",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedBy:    nil,
	}); err != nil {
		return err
	}
	logs.Logger.Infof("created system admin: %s", username)
	return nil
}
