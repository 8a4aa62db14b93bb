package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tdash/internal/models"
)

func TestSnapshotPutGet(t *testing.T) {
	s := NewSnapshotStore(newTestDB(t))
	ctx := context.Background()

	// пусто — (nil, zero, nil)
	payload, _, err := s.Get(ctx, "stockpiles")
	require.NoError(t, err)
	assert.Nil(t, payload)

	require.NoError(t, s.Put(ctx, "stockpiles", []byte(`{"ICAD":[]}`)))
	payload, at, err := s.Get(ctx, "stockpiles")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ICAD":[]}`, string(payload))
	assert.False(t, at.IsZero())

	// upsert по ключу, не вторая строка
	require.NoError(t, s.Put(ctx, "stockpiles", []byte(`{"ICAD":[1]}`)))
	payload, _, err = s.Get(ctx, "stockpiles")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ICAD":[1]}`, string(payload))

	var n int64
	require.NoError(t, s.db.Model(&models.DashboardSnapshot{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

// Гонку create/create закрывает unique-индекс: вставка в обход
// pre-check-а должна приходить как ErrDuplicatedKey.
func TestUniqueIndexClosesRace(t *testing.T) {
	d := newTestDB(t)
	s := NewUserStore(d)
	seedUser(t, s, "race", "race@terminal.local", models.RoleVisitor, nil)

	err := d.Create(&models.User{
		Username:     "race",
		Email:        "race2@terminal.local",
		FullName:     "Race Two",
		PasswordHash: "x",
		Role:         models.RoleVisitor,
		IsActive:     true,
	}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}
