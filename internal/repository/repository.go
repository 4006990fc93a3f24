// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrKitNotOwned is returned when a reset code is issued for a kit that
	// does not belong to the given email. Callers must check ownership first.
	ErrKitNotOwned = errors.New("kit is not registered to this email")
	// ErrBarcodeNotAvailable is returned when a sample is logged against a
	// barcode the login does not own or that already carries a sample.
	ErrBarcodeNotAvailable = errors.New("barcode not available")
	// ErrInvalidBarcode is returned for barcodes that are not 9 digits.
	ErrInvalidBarcode = errors.New("invalid barcode")
	// ErrInvalidEmail is returned when an email is empty after normalization.
	ErrInvalidEmail = errors.New("invalid email")
)

// Repository owns all access to the sample tracking store. Every mutating
// method runs in its own transaction.
type Repository struct {
	db         *sqlx.DB
	now        func() time.Time
	bcryptCost int
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces the time source used for code issuance and expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithBcryptCost sets the cost used when hashing kit passwords.
func WithBcryptCost(cost int) Option {
	return func(r *Repository) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.bcryptCost = cost
		}
	}
}

// New creates a new Repository instance.
func New(db *sqlx.DB, opts ...Option) *Repository {
	r := &Repository{
		db:         db,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DB returns the underlying connection pool.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// rebind converts ? placeholders to the driver's bind style.
func (r *Repository) rebind(query string) string {
	return r.db.Rebind(query)
}

func (r *Repository) clock() time.Time {
	return r.now().UTC()
}

// wrapError converts driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected turns an update that matched no rows into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// dummyHash keeps password checks for unknown kits as slow as for known ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

func checkPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
