package client

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testService(t *testing.T) *Service {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&Client{}))
	return &Service{DB: gdb}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	s := testService(t)

	id, err := s.Create(ctx, 7, "hash")
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = s.Create(ctx, 7, "other")
	require.ErrorIs(t, err, ErrDuplicateNumber)

	var count int64
	require.NoError(t, s.DB.Model(&Client{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpdateNumberRejectsCollision(t *testing.T) {
	ctx := context.Background()
	s := testService(t)

	a, err := s.Create(ctx, 1, "hash")
	require.NoError(t, err)
	_, err = s.Create(ctx, 2, "hash")
	require.NoError(t, err)

	require.ErrorIs(t, s.UpdateNumber(ctx, a, 2), ErrDuplicateNumber)

	// Renumbering to a free number, or to its own, is fine.
	require.NoError(t, s.UpdateNumber(ctx, a, 3))
	require.NoError(t, s.UpdateNumber(ctx, a, 3))

	c, err := s.ByID(ctx, a)
	require.NoError(t, err)
	require.Equal(t, 3, c.Number)
}

func TestAuthorizeLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testService(t)

	id, err := s.Create(ctx, 5, "hash")
	require.NoError(t, err)

	_, err = s.ByChat(ctx, 500)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Authorize(ctx, id, 500))
	c, err := s.ByChat(ctx, 500)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)

	list, err := s.Authorized(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Re-login rebinds the chat.
	require.NoError(t, s.Authorize(ctx, id, 501))
	c, err = s.ByChat(ctx, 501)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)

	require.NoError(t, s.Unauthorize(ctx, id))
	_, err = s.ByChat(ctx, 501)
	require.ErrorIs(t, err, ErrNotFound)

	list, err = s.Authorized(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestEmpty(t *testing.T) {
	ctx := context.Background()
	s := testService(t)

	empty, err := s.Empty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	_, err = s.Create(ctx, 1, "hash")
	require.NoError(t, err)

	empty, err = s.Empty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}
