package store

import (
	"context"
	"errors"
	"time"

	"custody-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the settlement engine. Callers discriminate
// with errors.Is; the API layer maps each group to a status category.
var (
	// Not found
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRoundNotFound       = errors.New("round not found")

	// State-machine conflicts
	ErrPendingTransactionExists = errors.New("user already has a pending transaction")
	ErrTransactionNotPending    = errors.New("transaction is not pending")
	ErrRoundNotClosed           = errors.New("round has not been concluded yet")
	ErrRateAlreadySet           = errors.New("round profit rate has already been set")

	// Unprocessable input
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidTransactionType = errors.New("transaction type is not valid")
	ErrInvalidAmount          = errors.New("amount must be a positive decimal")
	ErrInvalidStatus          = errors.New("status is not valid")
)

// CreateUserParams contains the parameters for creating a user.
type CreateUserParams struct {
	Id           string
	Email        string
	PasswordHash string
	Role         string
	Balance      decimal.Decimal
}

// CreateTransactionParams contains the parameters for a user-initiated
// deposit or withdrawal request.
type CreateTransactionParams struct {
	UserId string
	Type   string
	Amount decimal.Decimal
}

// UpdateTransactionStatusParams moves a PENDING transaction to APPROVED or
// REJECTED on behalf of an admin.
type UpdateTransactionStatusParams struct {
	TransactionId   string
	NewStatus       string
	ModifierAdminId string
}

// SettlementStore defines the contract the settlement core requires from
// its storage backend.
type SettlementStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)

	// --- Settings ---
	GetTaxRatePercent(ctx context.Context) (decimal.Decimal, error)
	UpdateTaxRate(ctx context.Context, taxPercent decimal.Decimal) error

	// --- Transactions ---
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, params UpdateTransactionStatusParams) (*models.Transaction, error)
	GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userId, status string) ([]models.Transaction, error)
	GetTransactionsByStatus(ctx context.Context, status string) ([]models.Transaction, error)

	// --- Snapshots ---
	RecordDailySnapshot(ctx context.Context, now time.Time) (int, error)
	SumBalancePerUser(ctx context.Context, startDate, endDate string) (map[string]decimal.Decimal, error)

	// --- Rounds ---
	EnsureRoundForMonth(ctx context.Context, date time.Time) error
	GetRoundById(ctx context.Context, roundId string) (*models.Round, error)
	GetRounds(ctx context.Context) ([]models.Round, error)
	SetProfitRate(ctx context.Context, roundId string, ratePercent decimal.Decimal, adminId string) error

	// --- Lifecycle ---
	Close()
}
