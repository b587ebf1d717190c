package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypeWithdrawal = "WITHDRAWAL"
	TransactionTypeProfit     = "PROFIT"
	TransactionTypeTax        = "TAX"
)

// Transaction statuses
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCompleted = "COMPLETED"
)

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a custodial account holder. Balance is mutated only
// through the ledger inside a storage transaction.
type User struct {
	Id           string          `db:"id"`
	Email        string          `db:"email"`
	PasswordHash string          `db:"password_hash"`
	Role         string          `db:"role"`
	Balance      decimal.Decimal `db:"balance"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// Transaction represents one movement in the ledger. DEPOSIT and WITHDRAWAL
// are user-initiated and start PENDING; PROFIT and TAX are synthesized by
// the engine and are COMPLETED from birth. APPROVED, REJECTED and COMPLETED
// are terminal.
type Transaction struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	ModifierAdminId string          `db:"modifier_admin_id"`
	Type            string          `db:"type"`
	Amount          decimal.Decimal `db:"amount"`
	TaxAmount       decimal.Decimal `db:"tax_amount"`
	HasTaxAmount    bool            `db:"-"`
	SourceId        string          `db:"source_id"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Round is a calendar-month accounting period. It opens when the month
// begins, closes once a later cycle observes the month boundary, and pays
// profit exactly once when its rate is set.
type Round struct {
	Id                string          `db:"id"`
	StartDate         string          `db:"start_date"` // YYYY-MM-DD
	EndDate           string          `db:"end_date"`   // YYYY-MM-DD
	IsClosed          bool            `db:"is_closed"`
	ProfitRatePercent decimal.Decimal `db:"profit_rate_percent"`
	HasProfitRate     bool            `db:"-"`
	ModifierAdminId   string          `db:"modifier_admin_id"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Snapshot is an append-only daily copy of a user's balance, at most one
// per (user, date).
type Snapshot struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	Date      string          `db:"date"` // YYYY-MM-DD
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
}

// Settings holds platform-wide knobs. Currently just the tax rate applied
// when a deposit or withdrawal is approved.
type Settings struct {
	Id         string          `db:"id"`
	TaxPercent decimal.Decimal `db:"tax_percent"`
	UpdatedAt  time.Time       `db:"updated_at"`
}
