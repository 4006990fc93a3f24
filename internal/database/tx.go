// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vinovest/sqlx"
)

// WithTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; the panic is
// re-raised after the rollback. The connection is back in the pool before
// WithTx returns. A canceled ctx aborts the transaction.
//
//	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
//	    _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE kits SET ... WHERE kit_id = ?"), id)
//	    return err
//	})
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}
