// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
	"codeberg.org/oliverandrich/sampletrack/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLogin(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	id, err := repo.AddLogin(ctx, models.NewLogin{Email: "Alice@Example.com", Name: "Alice", Country: "Germany"})

	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	var email string
	require.NoError(t, db.GetContext(ctx, &email, `SELECT email FROM logins WHERE login_id = ?`, id))
	assert.Equal(t, "alice@example.com", email)
}

func TestAddLogin_ExistingEmailAnyCase(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first, err := repo.AddLogin(ctx, models.NewLogin{Email: "bob@example.com", Name: "Bob"})
	require.NoError(t, err)

	second, err := repo.AddLogin(ctx, models.NewLogin{Email: "  BOB@Example.COM", Name: "Robert"})
	require.NoError(t, err)

	assert.Equal(t, first, second)

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM logins`))
	assert.Equal(t, 1, count)

	login, err := repo.GetLoginInfo(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Bob", login.Name)
}

func TestAddLogin_EmptyEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.AddLogin(context.Background(), models.NewLogin{Email: "  "})

	assert.ErrorIs(t, err, repository.ErrInvalidEmail)
}

func TestAddLogin_Concurrent(t *testing.T) {
	db, repo := testutil.NewFileTestDB(t)
	ctx := context.Background()
	require.Greater(t, db.Stats().MaxOpenConnections, 1)

	const workers = 20
	ids := make([]string, workers)
	errs := make([]error, workers)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ids[i], errs[i] = repo.AddLogin(ctx, models.NewLogin{Email: "Race@Example.COM"})
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM logins WHERE email = ?`, "race@example.com"))
	assert.Equal(t, 1, count)
}

func TestCheckLoginExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	id := testutil.NewTestLogin(t, repo, "carol@example.com")

	got, ok, err := repo.CheckLoginExists(ctx, "CAROL@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	got, ok, err = repo.CheckLoginExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestGetLoginInfo_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetLoginInfo(context.Background(), uuid.NewString())

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetLoginCoordinates(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	id := testutil.NewTestLogin(t, repo, "dave@example.com")

	require.NoError(t, repo.SetLoginCoordinates(ctx, id, 52.5163, 13.3777))

	login, err := repo.GetLoginInfo(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, login.Latitude)
	require.NotNil(t, login.Longitude)
	assert.InDelta(t, 52.5163, *login.Latitude, 1e-9)
	assert.InDelta(t, 13.3777, *login.Longitude, 1e-9)
}

func TestSetLoginCoordinates_Invalid(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	id := testutil.NewTestLogin(t, repo, "erin@example.com")

	assert.Error(t, repo.SetLoginCoordinates(ctx, id, 91, 0))
	assert.Error(t, repo.SetLoginCoordinates(ctx, id, 0, -181))
	assert.ErrorIs(t, repo.SetLoginCoordinates(ctx, uuid.NewString(), 1, 1), repository.ErrNotFound)
}

func TestGetKitIDsByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	id := testutil.NewTestLogin(t, repo, "frank@example.com")
	testutil.NewTestKit(t, repo, id, "kit-b", 1)
	testutil.NewTestKit(t, repo, id, "kit-a", 1)

	other := testutil.NewTestLogin(t, repo, "grace@example.com")
	testutil.NewTestKit(t, repo, other, "kit-c", 1)

	kits, err := repo.GetKitIDsByEmail(ctx, "Frank@Example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"kit-a", "kit-b"}, kits)

	kits, err = repo.GetKitIDsByEmail(ctx, "unknown@example.com")
	require.NoError(t, err)
	assert.NotNil(t, kits)
	assert.Empty(t, kits)
}
