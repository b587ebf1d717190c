package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody-ledger-go/internal/models"
	"custody-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

func scanTransaction(row interface{ Scan(dest ...any) error }) (*models.Transaction, error) {
	var txn models.Transaction
	var modifierAdminId, taxAmount, sourceId sql.NullString
	var amountStr string

	err := row.Scan(&txn.Id, &txn.UserId, &modifierAdminId, &txn.Type, &amountStr,
		&taxAmount, &sourceId, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if taxAmount.Valid {
		txn.TaxAmount, err = decimal.NewFromString(taxAmount.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tax amount '%s': %w", taxAmount.String, err)
		}
		txn.HasTaxAmount = true
	}
	txn.ModifierAdminId = modifierAdminId.String
	txn.SourceId = sourceId.String

	return &txn, nil
}

// CreateTransaction persists a new PENDING deposit or withdrawal request.
// It runs under the user's key so two concurrent requests cannot both pass
// the single-pending check, and no balance changes until approval.
func (s *Service) CreateTransaction(ctx context.Context, params store.CreateTransactionParams) (*models.Transaction, error) {
	if params.Type != models.TransactionTypeDeposit && params.Type != models.TransactionTypeWithdrawal {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidTransactionType, params.Type)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidAmount, params.Amount.String())
	}

	var created *models.Transaction
	err := s.locks.RunExclusive("user-"+params.UserId, func() error {
		user, err := s.GetUserById(ctx, params.UserId)
		if err != nil {
			return err
		}

		var pendingCount int
		if err := s.db.QueryRowContext(ctx, queryCountPendingTransactions, params.UserId).Scan(&pendingCount); err != nil {
			return fmt.Errorf("failed to count pending transactions: %w", err)
		}
		if pendingCount > 0 {
			return fmt.Errorf("%w: user %s", store.ErrPendingTransactionExists, params.UserId)
		}

		amount := params.Amount.Round(2)
		if params.Type == models.TransactionTypeWithdrawal && user.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, requested %s",
				store.ErrInsufficientBalance, user.Balance.String(), amount.String())
		}

		created, err = scanTransaction(s.db.QueryRowContext(ctx, queryInsertTransaction,
			uuid.New().String(), params.UserId, nil, params.Type, amount.String(),
			nil, nil, models.StatusPending))
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		zap.L().Info("Transaction created",
			zap.String("transaction_id", created.Id),
			zap.String("user_id", params.UserId),
			zap.String("type", params.Type),
			zap.String("amount", amount.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTransactionStatus moves a PENDING transaction to APPROVED or
// REJECTED. Approval applies the net (after-tax) amount to the balance and
// synthesizes a COMPLETED TAX transaction referencing the original; the
// status change, balance change and tax record commit as one storage
// transaction. Rejection only flips the status.
func (s *Service) UpdateTransactionStatus(ctx context.Context, params store.UpdateTransactionStatusParams) (*models.Transaction, error) {
	if params.NewStatus != models.StatusApproved && params.NewStatus != models.StatusRejected {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidStatus, params.NewStatus)
	}

	var updated *models.Transaction
	err := s.locks.RunExclusive("update-transaction-"+params.TransactionId, func() error {
		// Read the tax setting before opening the storage transaction: the
		// rate is not part of the atomic unit, the balance math is.
		taxRate, err := s.GetTaxRatePercent(ctx)
		if err != nil {
			return err
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		txn, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransactionById, params.TransactionId))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", store.ErrTransactionNotFound, params.TransactionId)
		}
		if err != nil {
			return fmt.Errorf("failed to read transaction: %w", err)
		}

		if txn.Status != models.StatusPending {
			return fmt.Errorf("%w: %s is %s", store.ErrTransactionNotPending, txn.Id, txn.Status)
		}
		if txn.Type != models.TransactionTypeDeposit && txn.Type != models.TransactionTypeWithdrawal {
			return fmt.Errorf("%w: %s", store.ErrInvalidTransactionType, txn.Type)
		}

		if params.NewStatus == models.StatusApproved {
			// Tax is kept at full precision for the net amount; only the
			// recorded tax is floored to cents.
			tax := txn.Amount.Mul(taxRate).Div(hundred)
			net := txn.Amount.Sub(tax)

			delta := net
			if txn.Type == models.TransactionTypeWithdrawal {
				delta = net.Neg()
			}

			newBalance, err := s.applyBalanceDelta(ctx, tx, txn.UserId, delta)
			if err != nil {
				return err
			}

			taxAmount := tax.RoundFloor(2)
			if _, err := tx.ExecContext(ctx, queryApproveTransaction,
				taxAmount.String(), params.ModifierAdminId, txn.Id); err != nil {
				return fmt.Errorf("failed to approve transaction: %w", err)
			}

			if _, err := s.generateTaxTransaction(ctx, tx, txn.UserId, taxAmount, txn.Id); err != nil {
				return err
			}

			zap.L().Info("Transaction approved",
				zap.String("transaction_id", txn.Id),
				zap.String("user_id", txn.UserId),
				zap.String("type", txn.Type),
				zap.String("net", net.String()),
				zap.String("tax", taxAmount.String()),
				zap.String("new_balance", newBalance.String()))
		} else {
			if _, err := tx.ExecContext(ctx, queryRejectTransaction,
				params.ModifierAdminId, txn.Id); err != nil {
				return fmt.Errorf("failed to reject transaction: %w", err)
			}

			zap.L().Info("Transaction rejected",
				zap.String("transaction_id", txn.Id),
				zap.String("user_id", txn.UserId))
		}

		updated, err = scanTransaction(tx.QueryRowContext(ctx, queryGetTransactionById, txn.Id))
		if err != nil {
			return fmt.Errorf("failed to re-read transaction: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// generateProfitTransaction records a COMPLETED PROFIT payout inside the
// caller's storage transaction. Invoked only by round distribution.
func (s *Service) generateProfitTransaction(ctx context.Context, tx *sql.Tx, userId string, amount decimal.Decimal, roundId string) (*models.Transaction, error) {
	txn, err := scanTransaction(tx.QueryRowContext(ctx, queryInsertTransaction,
		uuid.New().String(), userId, nil, models.TransactionTypeProfit, amount.String(),
		nil, roundId, models.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to insert profit transaction: %w", err)
	}
	return txn, nil
}

func (s *Service) generateTaxTransaction(ctx context.Context, tx *sql.Tx, userId string, amount decimal.Decimal, sourceTransactionId string) (*models.Transaction, error) {
	txn, err := scanTransaction(tx.QueryRowContext(ctx, queryInsertTransaction,
		uuid.New().String(), userId, nil, models.TransactionTypeTax, amount.String(),
		nil, sourceTransactionId, models.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to insert tax transaction: %w", err)
	}
	return txn, nil
}

func (s *Service) GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error) {
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionById, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}
	return txn, nil
}

// GetUserTransactions returns a user's transactions, optionally filtered by
// status (empty status means all of them).
func (s *Service) GetUserTransactions(ctx context.Context, userId, status string) ([]models.Transaction, error) {
	if status == "" {
		return s.queryTransactions(ctx, queryGetUserTransactionsAll, userId)
	}
	return s.queryTransactions(ctx, queryGetUserTransactionsByStatus, userId, status)
}

func (s *Service) GetTransactionsByStatus(ctx context.Context, status string) ([]models.Transaction, error) {
	return s.queryTransactions(ctx, queryGetTransactionsByStatus, status)
}

func (s *Service) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}
