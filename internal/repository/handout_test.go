// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
	"codeberg.org/oliverandrich/sampletrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addHandout(t *testing.T, repo *repository.Repository, suppliedKitID string) []string {
	t.Helper()
	barcodes := []string{testutil.NewTestBarcode(), testutil.NewTestBarcode()}
	err := repo.AddHandoutKit(context.Background(), models.HandoutKit{
		SuppliedKitID:    suppliedKitID,
		Password:         "handout-pw",
		VerificationCode: "HANDOUT1",
		SwabsPerKit:      2,
		Barcodes:         barcodes,
	})
	require.NoError(t, err)
	return barcodes
}

func TestHandoutCheck(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	addHandout(t, repo, "tst_handout")

	ok, err := repo.HandoutCheck(ctx, "tst_handout", "handout-pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HandoutCheck(ctx, "tst_handout", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.HandoutCheck(ctx, "missing", "handout-pw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddHandoutKit_InvalidBarcode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.AddHandoutKit(context.Background(), models.HandoutKit{
		SuppliedKitID: "tst_bad",
		Password:      "pw",
		Barcodes:      []string{"abc"},
	})

	assert.ErrorIs(t, err, repository.ErrInvalidBarcode)
}

func TestRegisterHandoutKit(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	barcodes := addHandout(t, repo, "tst_handout")
	loginID := testutil.NewTestLogin(t, repo, "handout@example.com")

	kitID, err := repo.RegisterHandoutKit(ctx, loginID, "tst_handout")
	require.NoError(t, err)

	kit, err := repo.GetKit(ctx, "tst_handout")
	require.NoError(t, err)
	assert.Equal(t, kitID, kit.KitID)
	assert.Equal(t, loginID, kit.LoginID)
	assert.Equal(t, 2, kit.SwabsPerKit)

	ok, err := repo.AuthenticateKit(ctx, "tst_handout", "handout-pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VerifyKit(ctx, "tst_handout", "HANDOUT1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetBarcodesByKit(ctx, "tst_handout")
	require.NoError(t, err)
	assert.ElementsMatch(t, barcodes, got)

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM handout_kits`))
	assert.Zero(t, count)
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM handout_barcodes`))
	assert.Zero(t, count)

	ok, err = repo.HandoutCheck(ctx, "tst_handout", "handout-pw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterHandoutKit_Unknown(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "handout@example.com")

	_, err := repo.RegisterHandoutKit(ctx, loginID, "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegisterHandoutKit_UnknownLoginRollsBack(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	addHandout(t, repo, "tst_handout")

	_, err := repo.RegisterHandoutKit(ctx, "missing-login", "tst_handout")
	require.Error(t, err)

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM handout_kits`))
	assert.Equal(t, 1, count)
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM kits`))
	assert.Zero(t, count)
}
