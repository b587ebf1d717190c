package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// applyBalanceDelta is the only writer of users.balance. It runs inside a
// storage transaction supplied by the caller so the balance change commits
// atomically with whatever transaction record describes it. The new balance
// is rounded to 2 decimal places at this boundary; non-negativity is the
// caller's responsibility (withdrawal sufficiency is checked before any
// delta is applied).
func (s *Service) applyBalanceDelta(ctx context.Context, tx *sql.Tx, userId string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balanceStr string
	err := tx.QueryRowContext(ctx, queryGetUserBalance, userId).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}

	newBalance := balance.Add(delta).Round(2)

	result, err := tx.ExecContext(ctx, queryUpdateUserBalance, newBalance.String(), userId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	return newBalance, nil
}
