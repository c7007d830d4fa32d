package user_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/product-management/internal/db/dbtest"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

func TestRepository_CreateWithRoles(t *testing.T) {
	pg := dbtest.Open(t)
	repo := user.NewRepository(pg)
	ctx := context.Background()

	suffix := uuid.Must(uuid.NewV4()).String()[:8]
	u := &user.User{
		Username:  "repo_" + suffix,
		Password:  "hash",
		Email:     "repo_" + suffix + "@example.com",
		FirstName: "Repo",
		LastName:  "Test",
		Enabled:   true,
	}

	err := pg.RunInTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, u); err != nil {
			return err
		}
		return repo.SetRoles(ctx, u.ID, []user.Role{user.RoleUser, user.RoleAdmin})
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Delete(context.Background(), u.ID) })

	got, err := repo.GetByUsername(ctx, u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.ElementsMatch(t, []user.Role{user.RoleUser, user.RoleAdmin}, got.Roles)

	require.NoError(t, repo.SetRoles(ctx, u.ID, []user.Role{user.RoleSuperAdmin}))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []user.Role{user.RoleSuperAdmin}, got.Roles)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	var listed *user.User
	for i := range all {
		if all[i].ID == u.ID {
			listed = &all[i]
		}
	}
	require.NotNil(t, listed)
	assert.Equal(t, []user.Role{user.RoleSuperAdmin}, listed.Roles)

	err = repo.Create(ctx, &user.User{Username: u.Username, Password: "x", Email: "other_" + suffix + "@example.com"})
	require.ErrorIs(t, err, user.ErrUsernameExists)

	err = repo.Create(ctx, &user.User{Username: "other_" + suffix, Password: "x", Email: u.Email})
	require.ErrorIs(t, err, user.ErrEmailExists)
}

func TestRepository_DeleteUnknown(t *testing.T) {
	pg := dbtest.Open(t)
	repo := user.NewRepository(pg)

	err := repo.Delete(context.Background(), uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestRepository_EnsureRolesIsIdempotent(t *testing.T) {
	pg := dbtest.Open(t)
	repo := user.NewRepository(pg)
	ctx := context.Background()

	roles := []user.Role{user.RoleUser, user.RoleAdmin, user.RoleSuperAdmin}
	require.NoError(t, repo.EnsureRoles(ctx, roles))
	require.NoError(t, repo.EnsureRoles(ctx, roles))

	var n int
	require.NoError(t, pg.Pool.QueryRow(ctx, `SELECT count(*) FROM roles`).Scan(&n))
	assert.Equal(t, 3, n)
}
