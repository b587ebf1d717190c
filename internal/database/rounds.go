package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"custody-ledger-go/internal/models"
	"custody-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// distributionWorkers bounds the number of concurrent per-user payouts.
const distributionWorkers = 4

func scanRound(row interface{ Scan(dest ...any) error }) (*models.Round, error) {
	var round models.Round
	var isClosed int
	var profitRate, modifierAdminId sql.NullString

	err := row.Scan(&round.Id, &round.StartDate, &round.EndDate, &isClosed,
		&profitRate, &modifierAdminId, &round.CreatedAt)
	if err != nil {
		return nil, err
	}

	round.IsClosed = isClosed != 0
	round.ModifierAdminId = modifierAdminId.String
	if profitRate.Valid {
		round.ProfitRatePercent, err = decimal.NewFromString(profitRate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse profit rate '%s': %w", profitRate.String, err)
		}
		round.HasProfitRate = true
	}
	return &round, nil
}

func monthBounds(date time.Time) (string, string) {
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return start.Format(dateLayout), end.Format(dateLayout)
}

// EnsureRoundForMonth creates the open round for date's calendar month if
// it does not exist, then closes the previous month's round once the date
// boundary has passed. Closure is driven by whichever snapshot or
// settlement cycle first observes the boundary, not by a background timer.
func (s *Service) EnsureRoundForMonth(ctx context.Context, date time.Time) error {
	startDate, endDate := monthBounds(date)

	_, err := scanRound(s.db.QueryRowContext(ctx, queryGetRoundByDates, startDate, endDate))
	if errors.Is(err, sql.ErrNoRows) {
		roundId := uuid.New().String()
		if _, err := s.db.ExecContext(ctx, queryInsertRound, roundId, startDate, endDate); err != nil {
			return fmt.Errorf("failed to create round: %w", err)
		}
		zap.L().Info("Round opened",
			zap.String("round_id", roundId),
			zap.String("start_date", startDate),
			zap.String("end_date", endDate))
	} else if err != nil {
		return fmt.Errorf("failed to query round: %w", err)
	}

	return s.closePreviousRound(ctx, date)
}

func (s *Service) closePreviousRound(ctx context.Context, date time.Time) error {
	prevMonth := time.Date(date.Year(), date.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	startDate, endDate := monthBounds(prevMonth)

	round, err := scanRound(s.db.QueryRowContext(ctx, queryGetRoundByDates, startDate, endDate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query previous round: %w", err)
	}
	if round.IsClosed {
		return nil
	}

	end, err := time.Parse(dateLayout, round.EndDate)
	if err != nil {
		return fmt.Errorf("failed to parse round end date '%s': %w", round.EndDate, err)
	}
	if !date.After(end) {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, queryCloseRound, round.Id); err != nil {
		return fmt.Errorf("failed to close round: %w", err)
	}

	zap.L().Info("Round closed",
		zap.String("round_id", round.Id),
		zap.String("end_date", round.EndDate))
	return nil
}

func (s *Service) GetRoundById(ctx context.Context, roundId string) (*models.Round, error) {
	round, err := scanRound(s.db.QueryRowContext(ctx, queryGetRoundById, roundId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrRoundNotFound, roundId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read round: %w", err)
	}
	return round, nil
}

func (s *Service) GetRounds(ctx context.Context) ([]models.Round, error) {
	rows, err := s.db.QueryContext(ctx, queryGetRounds)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var rounds []models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, *round)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round rows: %w", err)
	}
	return rounds, nil
}

// SetProfitRate records the profit rate for a closed round and triggers
// distribution. The rate can be set exactly once: the conditional UPDATE
// (profit_rate_percent IS NULL) backs the in-memory guard so even a bypassed
// mutex cannot set it twice.
func (s *Service) SetProfitRate(ctx context.Context, roundId string, ratePercent decimal.Decimal, adminId string) error {
	round, err := s.GetRoundById(ctx, roundId)
	if err != nil {
		return err
	}
	if !round.IsClosed {
		return fmt.Errorf("%w: %s", store.ErrRoundNotClosed, roundId)
	}
	if round.HasProfitRate {
		return fmt.Errorf("%w: %s", store.ErrRateAlreadySet, roundId)
	}

	result, err := s.db.ExecContext(ctx, querySetProfitRate, ratePercent.String(), adminId, roundId)
	if err != nil {
		return fmt.Errorf("failed to set profit rate: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Lost a race with a concurrent SetProfitRate call.
		return fmt.Errorf("%w: %s", store.ErrRateAlreadySet, roundId)
	}

	zap.L().Info("Profit rate set",
		zap.String("round_id", roundId),
		zap.String("rate_percent", ratePercent.String()),
		zap.String("admin_id", adminId))

	round.ProfitRatePercent = ratePercent
	round.HasProfitRate = true
	round.ModifierAdminId = adminId
	return s.distribute(ctx, round)
}

// distribute pays each user their share of the round's profit, computed
// from the average daily balance over the round. It runs under the round's
// key so duplicate triggers cannot pay twice; each user's balance change
// and PROFIT record commit as one atomic unit, so a failure for one user
// never corrupts another's payout.
func (s *Service) distribute(ctx context.Context, round *models.Round) error {
	return s.locks.RunExclusive("round-"+round.Id, func() error {
		start, err := time.Parse(dateLayout, round.StartDate)
		if err != nil {
			return fmt.Errorf("failed to parse round start date '%s': %w", round.StartDate, err)
		}
		end, err := time.Parse(dateLayout, round.EndDate)
		if err != nil {
			return fmt.Errorf("failed to parse round end date '%s': %w", round.EndDate, err)
		}
		days := int64(end.Sub(start).Hours()/24) + 1
		daysDec := decimal.NewFromInt(days)

		sums, err := s.SumBalancePerUser(ctx, round.StartDate, round.EndDate)
		if err != nil {
			return err
		}

		zap.L().Info("Distributing round profit",
			zap.String("round_id", round.Id),
			zap.String("rate_percent", round.ProfitRatePercent.String()),
			zap.Int64("days", days),
			zap.Int("users", len(sums)))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(distributionWorkers)

		for userId, sum := range sums {
			userId, sum := userId, sum
			g.Go(func() error {
				avg := sum.Div(daysDec)
				// Floor at cent granularity: the fractional remainder stays
				// with the platform rather than being overpaid.
				profit := avg.Mul(round.ProfitRatePercent).Div(hundred).RoundFloor(2)
				if !profit.IsPositive() {
					return nil
				}

				if err := s.payProfit(gctx, userId, profit, round.Id); err != nil {
					if errors.Is(err, store.ErrUserNotFound) {
						zap.L().Warn("Skipping profit for missing user",
							zap.String("round_id", round.Id),
							zap.String("user_id", userId))
						return nil
					}
					zap.L().Error("Profit payout failed",
						zap.String("round_id", round.Id),
						zap.String("user_id", userId),
						zap.Error(err))
					return err
				}

				zap.L().Info("Profit paid",
					zap.String("round_id", round.Id),
					zap.String("user_id", userId),
					zap.String("profit", profit.String()))
				return nil
			})
		}

		return g.Wait()
	})
}

func (s *Service) payProfit(ctx context.Context, userId string, profit decimal.Decimal, roundId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.applyBalanceDelta(ctx, tx, userId, profit); err != nil {
		return err
	}
	if _, err := s.generateProfitTransaction(ctx, tx, userId, profit, roundId); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profit payout: %w", err)
	}
	return nil
}
