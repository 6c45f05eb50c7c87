package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-iam/backend/internal/db/dbtest"
)

func TestPostgresRepository_FindCredentialByEmail(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	demoID := dbtest.InsertUser(t, conn, uuid.NewString(), "demo", "demo@aviater.com", "hash-demo")
	otherID := dbtest.InsertUser(t, conn, uuid.NewString(), "demo@aviater.org", "other@aviater.com", "hash-other")
	orgID := dbtest.InsertUser(t, conn, uuid.NewString(), "org", "demo@aviater.org", "hash-org")

	testCases := []struct {
		name   string
		login  string
		wantID string
	}{
		{"by email", "demo@aviater.com", demoID},
		{"email is case-insensitive", "  DEMO@Aviater.com ", demoID},
		{"by name", "demo", demoID},
		{"email beats name", "demo@aviater.org", orgID},
		{"email of user whose name looks like an email", "other@aviater.com", otherID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := repo.FindCredentialByEmail(ctx, tc.login)
			require.NoError(t, err)
			require.NotNil(t, c)
			assert.Equal(t, tc.wantID, c.UserID)
		})
	}

	c, err := repo.FindCredentialByEmail(ctx, "nobody@aviater.com")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = repo.FindCredentialByEmail(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = repo.FindCredentialByEmail(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "hash-demo", c.PasswordHash)
}

func TestPostgresRepository_FindCredentialByEmail_SharedName(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	firstID := dbtest.InsertUser(t, conn, uuid.NewString(), "sam", "sam.one@aviater.com", "hash-one")
	secondID := dbtest.InsertUser(t, conn, uuid.NewString(), "sam", "sam.two@aviater.com", "hash-two")

	c, err := repo.FindCredentialByEmail(ctx, "sam")
	require.NoError(t, err)
	assert.Nil(t, c, "a name held by two users matches neither")

	c, err = repo.FindCredentialByEmail(ctx, "sam.one@aviater.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, firstID, c.UserID)

	c, err = repo.FindCredentialByEmail(ctx, "sam.two@aviater.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, secondID, c.UserID)
}
