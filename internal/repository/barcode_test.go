// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
	"codeberg.org/oliverandrich/sampletrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleDay = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func TestGetBarcodeDetails(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "details@example.com")
	kit, barcodes := testutil.NewTestKit(t, repo, loginID, "tst_details", 1)

	rec, err := repo.GetBarcodeDetails(ctx, barcodes[0])
	require.NoError(t, err)

	assert.Equal(t, barcodes[0], rec.String("barcode"))
	assert.Equal(t, kit.KitID, rec.String("kit_id"))
	assert.Equal(t, kit.SuppliedKitID, rec.String("supplied_kit_id"))
	assert.NotEqual(t, rec.String("kit_id"), rec.String("kit_barcode_id"))
	assert.Equal(t, "details@example.com", rec.String("email"))
	assert.Equal(t, "Test Participant", rec.String("name"))
	assert.Nil(t, rec.NullableString("status"))
	for _, col := range []string{
		"participant_name", "site_sampled", "environment_sampled", "sample_date", "sample_time",
		"notes", "overloaded", "withdrawn", "other", "moldy", "refunded", "kit_barcode_id",
		"date_of_last_email", "other_text",
	} {
		assert.Contains(t, rec, col)
	}
}

func TestGetBarcodeDetails_UnknownAndUnlinkedLookAlike(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	// Registered in the shared registry but not linked to any kit here.
	_, err := db.ExecContext(ctx, `INSERT INTO barcodes (barcode, status) VALUES ('900000001', 'Received')`)
	require.NoError(t, err)

	unknown, err := repo.GetBarcodeDetails(ctx, "900000002")
	require.NoError(t, err)
	unlinked, err := repo.GetBarcodeDetails(ctx, "900000001")
	require.NoError(t, err)

	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
	assert.Equal(t, unknown, unlinked)
}

func TestDeleteSample_Owner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "owner@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, loginID, "tst_owner", 2)

	require.NoError(t, repo.DeleteSample(ctx, barcodes[0], loginID))

	rec, err := repo.GetBarcodeDetails(ctx, barcodes[0])
	require.NoError(t, err)
	assert.Empty(t, rec)

	rec, err = repo.GetBarcodeDetails(ctx, barcodes[1])
	require.NoError(t, err)
	assert.NotEmpty(t, rec)
}

func TestDeleteSample_NotOwner(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestLogin(t, repo, "owner@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, owner, "tst_owner", 1)
	intruder := testutil.NewTestLogin(t, repo, "intruder@example.com")

	require.NoError(t, repo.DeleteSample(ctx, barcodes[0], intruder))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM kit_barcodes WHERE barcode = ?`, barcodes[0]))
	assert.Equal(t, 1, count)
}

func TestDeleteSample_UnknownBarcode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "owner@example.com")

	assert.NoError(t, repo.DeleteSample(ctx, "999999999", loginID))
}

func TestCheckAccess(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "access@example.com")
	_, mine := testutil.NewTestKit(t, repo, loginID, "tst_mine", 1)
	_, theirs := testutil.NewTestKit(t, repo, loginID, "tst_theirs", 1)

	ok, err := repo.CheckAccess(ctx, "tst_mine", mine[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CheckAccess(ctx, "tst_mine", theirs[0])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogParticipantSample(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "sample@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, loginID, "tst_sample", 3)

	err := repo.LogParticipantSample(ctx, loginID, barcodes[0], models.SampleLog{
		ParticipantName: "Alice",
		SiteSampled:     "Stool",
		SampleDate:      sampleDay,
		SampleTime:      "08:30",
		Notes:           "before breakfast",
	})
	require.NoError(t, err)

	err = repo.LogParticipantSample(ctx, loginID, barcodes[1], models.SampleLog{
		EnvironmentSampled: "Kitchen counter",
		SampleDate:         sampleDay,
	})
	require.NoError(t, err)

	available, err := repo.GetAvailableBarcodes(ctx, loginID)
	require.NoError(t, err)
	assert.Equal(t, []string{barcodes[2]}, available)

	samples, err := repo.GetParticipantSamples(ctx, loginID, "Alice")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, barcodes[0], samples[0].Barcode)
	require.NotNil(t, samples[0].SiteSampled)
	assert.Equal(t, "Stool", *samples[0].SiteSampled)
	assert.Nil(t, samples[0].EnvironmentSampled)
	require.NotNil(t, samples[0].SampleDate)
	assert.True(t, samples[0].SampleDate.Equal(sampleDay))
	assert.True(t, samples[0].Logged())

	env, err := repo.GetEnvironmentalSamples(ctx, loginID)
	require.NoError(t, err)
	require.Len(t, env, 1)
	assert.Equal(t, barcodes[1], env[0].Barcode)
	assert.Nil(t, env[0].ParticipantName)
}

func TestLogParticipantSample_NotAvailable(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestLogin(t, repo, "owner@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, owner, "tst_owner", 1)
	other := testutil.NewTestLogin(t, repo, "other@example.com")

	log := models.SampleLog{SiteSampled: "Stool", SampleDate: sampleDay}

	err := repo.LogParticipantSample(ctx, other, barcodes[0], log)
	assert.ErrorIs(t, err, repository.ErrBarcodeNotAvailable)

	require.NoError(t, repo.LogParticipantSample(ctx, owner, barcodes[0], log))

	err = repo.LogParticipantSample(ctx, owner, barcodes[0], log)
	assert.ErrorIs(t, err, repository.ErrBarcodeNotAvailable)
}

func TestLogParticipantSample_Validation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "owner@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, loginID, "tst_owner", 1)

	assert.Error(t, repo.LogParticipantSample(ctx, loginID, barcodes[0], models.SampleLog{SampleDate: sampleDay}))
	assert.Error(t, repo.LogParticipantSample(ctx, loginID, barcodes[0], models.SampleLog{
		SiteSampled: "Stool", EnvironmentSampled: "Desk", SampleDate: sampleDay,
	}))
	assert.Error(t, repo.LogParticipantSample(ctx, loginID, barcodes[0], models.SampleLog{SiteSampled: "Stool"}))
}

func TestUpdateBarcodeStatus(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "status@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, loginID, "tst_status", 1)

	require.NoError(t, repo.UpdateBarcodeStatus(ctx, barcodes[0], models.StatusReceived))

	rec, err := repo.GetBarcodeDetails(ctx, barcodes[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceived, rec.String("status"))

	require.NoError(t, repo.UpdateBarcodeStatus(ctx, barcodes[0], ""))
	rec, err = repo.GetBarcodeDetails(ctx, barcodes[0])
	require.NoError(t, err)
	assert.Nil(t, rec.NullableString("status"))

	_, err = db.ExecContext(ctx, `INSERT INTO barcodes (barcode) VALUES ('900000003')`)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateBarcodeStatus(ctx, "900000003", "Received"), repository.ErrNotFound)
}

func TestMarkStatusEmailSent(t *testing.T) {
	clock := testutil.NewClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	_, repo := testutil.NewTestDB(t, repository.WithClock(clock.Now))
	ctx := context.Background()

	loginID := testutil.NewTestLogin(t, repo, "status@example.com")
	_, barcodes := testutil.NewTestKit(t, repo, loginID, "tst_status", 1)

	require.NoError(t, repo.MarkStatusEmailSent(ctx, barcodes[0]))

	rec, err := repo.GetBarcodeDetails(ctx, barcodes[0])
	require.NoError(t, err)
	assert.NotNil(t, rec["date_of_last_email"])

	assert.ErrorIs(t, repo.MarkStatusEmailSent(ctx, "999999999"), repository.ErrNotFound)
}
