// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T, opts ...repository.Option) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	return openTestDB(t, ":memory:", opts...)
}

// NewFileTestDB creates a SQLite database file in a temporary directory.
// Unlike the in-memory database it uses a pool of connections, so parallel
// callers contend in the store itself.
func NewFileTestDB(t *testing.T, opts ...repository.Option) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "test.db"), opts...)
}

func openTestDB(t *testing.T, dsn string, opts ...repository.Option) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	opts = append([]repository.Option{repository.WithBcryptCost(bcrypt.MinCost)}, opts...)
	repo := repository.New(db, opts...)
	return db, repo
}

// NewTestLogin creates a login for email and returns its id.
func NewTestLogin(t *testing.T, repo *repository.Repository, email string) string {
	t.Helper()
	id, err := repo.AddLogin(context.Background(), models.NewLogin{
		Email:   email,
		Name:    "Test Participant",
		Address: "1 Main St",
		City:    "Springfield",
		State:   "CA",
		Zip:     "90210",
		Country: "United States",
	})
	require.NoError(t, err)
	return id
}

var barcodeSeq atomic.Int64

// NewTestBarcode returns a fresh 9 digit barcode.
func NewTestBarcode() string {
	return fmt.Sprintf("%09d", barcodeSeq.Add(1))
}

// TestKitPassword is the password of kits created by NewTestKit.
const TestKitPassword = "kit-password"

// TestVerificationCode is the verification code of kits created by NewTestKit.
const TestVerificationCode = "VERIFY1"

// NewTestKit creates a kit with the given number of barcodes for loginID and
// returns it together with its barcodes.
func NewTestKit(t *testing.T, repo *repository.Repository, loginID, suppliedKitID string, barcodes int) (*models.Kit, []string) {
	t.Helper()
	ctx := context.Background()

	codes := make([]string, barcodes)
	for i := range codes {
		codes[i] = NewTestBarcode()
	}

	_, err := repo.AddKit(ctx, loginID, models.NewKit{
		SuppliedKitID:    suppliedKitID,
		Password:         TestKitPassword,
		VerificationCode: TestVerificationCode,
		SwabsPerKit:      barcodes,
		Barcodes:         codes,
	})
	require.NoError(t, err)

	kit, err := repo.GetKit(ctx, suppliedKitID)
	require.NoError(t, err)
	return kit, codes
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
