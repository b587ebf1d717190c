package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// RecordDailySnapshot copies every user's current balance into the
// snapshots table for today's UTC date, first making sure the current
// month's round exists and the previous one is closed. The UNIQUE
// (user_id, date) index makes re-runs within the same day no-ops, so the
// entry point is safe to invoke more than once per day. Returns the number
// of snapshot rows actually inserted.
func (s *Service) RecordDailySnapshot(ctx context.Context, now time.Time) (int, error) {
	today := now.UTC()
	date := today.Format(dateLayout)

	if err := s.EnsureRoundForMonth(ctx, today); err != nil {
		return 0, err
	}

	users, err := s.GetUsers(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, user := range users {
		result, err := s.db.ExecContext(ctx, queryInsertSnapshot,
			uuid.New().String(), user.Id, date, user.Balance.String())
		if err != nil {
			return inserted, fmt.Errorf("failed to insert snapshot for user %s: %w", user.Id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected > 0 {
			inserted++
		}
	}

	zap.L().Info("Daily snapshot recorded",
		zap.String("date", date),
		zap.Int("users", len(users)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// SumBalancePerUser aggregates snapshot balances over an inclusive date
// range, grouped by user. The summation runs in Go over decimals rather
// than in SQL: sqlite coerces TEXT operands to binary floats inside SUM(),
// which would silently lose cents.
func (s *Service) SumBalancePerUser(ctx context.Context, startDate, endDate string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, querySnapshotBalancesInRange, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var userId, balanceStr string
		if err := rows.Scan(&userId, &balanceStr); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot balance '%s': %w", balanceStr, err)
		}
		sums[userId] = sums[userId].Add(balance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return sums, nil
}

// CountSnapshotsForDate reports how many snapshot rows exist for a date.
func (s *Service) CountSnapshotsForDate(ctx context.Context, date string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountSnapshotsForDate, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}
