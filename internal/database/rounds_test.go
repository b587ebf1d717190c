package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"custody-ledger-go/internal/models"
	"custody-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// insertSnapshots writes one snapshot per day over [start, days) for a user.
func insertSnapshots(t *testing.T, service *Service, userId string, start time.Time, days int, balance string) {
	t.Helper()
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		_, err := service.db.Exec(queryInsertSnapshot, uuid.New().String(), userId, date, balance)
		if err != nil {
			t.Fatalf("Failed to insert snapshot: %v", err)
		}
	}
}

// closedRoundForMonth creates the round for anyDay's month and closes it by
// running the next month's cycle, the same path production takes.
func closedRoundForMonth(t *testing.T, service *Service, anyDay time.Time) *models.Round {
	t.Helper()
	ctx := context.Background()

	if err := service.EnsureRoundForMonth(ctx, anyDay); err != nil {
		t.Fatalf("EnsureRoundForMonth failed: %v", err)
	}
	nextMonth := time.Date(anyDay.Year(), anyDay.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	if err := service.EnsureRoundForMonth(ctx, nextMonth); err != nil {
		t.Fatalf("EnsureRoundForMonth (next month) failed: %v", err)
	}

	startDate, endDate := monthBounds(anyDay)
	round, err := scanRound(service.db.QueryRow(queryGetRoundByDates, startDate, endDate))
	if err != nil {
		t.Fatalf("Failed to read round: %v", err)
	}
	if !round.IsClosed {
		t.Fatalf("Expected round %s to be closed", round.Id)
	}
	return round
}

func TestEnsureRoundForMonth_CreatesOpenRoundOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	day := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	if err := service.EnsureRoundForMonth(ctx, day); err != nil {
		t.Fatalf("EnsureRoundForMonth failed: %v", err)
	}
	// Re-running within the month must not create a second round.
	if err := service.EnsureRoundForMonth(ctx, day.AddDate(0, 0, 5)); err != nil {
		t.Fatalf("Second EnsureRoundForMonth failed: %v", err)
	}

	rounds, err := service.GetRounds(ctx)
	if err != nil {
		t.Fatalf("GetRounds failed: %v", err)
	}
	if len(rounds) != 1 {
		t.Fatalf("Expected 1 round, got %d", len(rounds))
	}

	round := rounds[0]
	if round.StartDate != "2025-06-01" || round.EndDate != "2025-06-30" {
		t.Errorf("Expected June bounds, got %s → %s", round.StartDate, round.EndDate)
	}
	if round.IsClosed {
		t.Error("Expected new round to be open")
	}
	if round.HasProfitRate {
		t.Error("Expected new round to have no profit rate")
	}
}

func TestEnsureRoundForMonth_ClosesPreviousRound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	june := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	if err := service.EnsureRoundForMonth(ctx, june); err != nil {
		t.Fatalf("EnsureRoundForMonth failed: %v", err)
	}

	// First cycle of July observes the boundary and closes June.
	july := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	if err := service.EnsureRoundForMonth(ctx, july); err != nil {
		t.Fatalf("EnsureRoundForMonth failed: %v", err)
	}

	rounds, err := service.GetRounds(ctx)
	if err != nil {
		t.Fatalf("GetRounds failed: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("Expected 2 rounds, got %d", len(rounds))
	}

	for _, round := range rounds {
		switch round.StartDate {
		case "2025-06-01":
			if !round.IsClosed {
				t.Error("Expected June round to be closed")
			}
		case "2025-07-01":
			if round.IsClosed {
				t.Error("Expected July round to be open")
			}
		default:
			t.Errorf("Unexpected round %s → %s", round.StartDate, round.EndDate)
		}
	}
}

func TestSetProfitRate_RoundNotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	err := service.SetProfitRate(context.Background(), "no-such-round",
		decimal.RequireFromString("10.0000"), "admin")
	if !errors.Is(err, store.ErrRoundNotFound) {
		t.Errorf("Expected ErrRoundNotFound, got %v", err)
	}
}

func TestSetProfitRate_RoundNotClosed(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	if err := service.EnsureRoundForMonth(ctx, day); err != nil {
		t.Fatalf("EnsureRoundForMonth failed: %v", err)
	}

	rounds, err := service.GetRounds(ctx)
	if err != nil {
		t.Fatalf("GetRounds failed: %v", err)
	}

	err = service.SetProfitRate(ctx, rounds[0].Id, decimal.RequireFromString("10.0000"), "admin")
	if !errors.Is(err, store.ErrRoundNotClosed) {
		t.Errorf("Expected ErrRoundNotClosed, got %v", err)
	}
}

// June 2025 has 30 days; 30 snapshots of 100.00 give sum 3000.00,
// avg 100.00, and at 10% the profit is exactly 10.00.
func TestSetProfitRate_DistributesProfit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice@example.com", "100.00")
	admin := createTestUser(t, service, "admin@example.com", "0")

	juneFirst := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, juneFirst)
	insertSnapshots(t, service, user.Id, juneFirst, 30, "100.00")

	if err := service.SetProfitRate(ctx, round.Id, decimal.RequireFromString("10.0000"), admin.Id); err != nil {
		t.Fatalf("SetProfitRate failed: %v", err)
	}

	fresh, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !fresh.Balance.Equal(decimal.RequireFromString("110.00")) {
		t.Errorf("Expected balance 110.00 after profit, got %s", fresh.Balance.String())
	}

	completed, err := service.GetUserTransactions(ctx, user.Id, models.StatusCompleted)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("Expected 1 PROFIT transaction, got %d", len(completed))
	}
	profitTxn := completed[0]
	if profitTxn.Type != models.TransactionTypeProfit {
		t.Errorf("Expected PROFIT, got %s", profitTxn.Type)
	}
	if !profitTxn.Amount.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expected profit 10.00, got %s", profitTxn.Amount.String())
	}
	if profitTxn.SourceId != round.Id {
		t.Errorf("Expected source %s, got %s", round.Id, profitTxn.SourceId)
	}
}

// July 2025 has 31 days; a single snapshot of 100.00 gives avg
// 100/31 = 3.2258..., and at 10% the profit floors to 0.32.
func TestDistribute_FloorsAtCents(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice@example.com", "0")

	julyFirst := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, julyFirst)
	insertSnapshots(t, service, user.Id, julyFirst, 1, "100.00")

	if err := service.SetProfitRate(ctx, round.Id, decimal.RequireFromString("10.0000"), "admin"); err != nil {
		t.Fatalf("SetProfitRate failed: %v", err)
	}

	fresh, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !fresh.Balance.Equal(decimal.RequireFromString("0.32")) {
		t.Errorf("Expected floored profit 0.32, got balance %s", fresh.Balance.String())
	}
}

func TestDistribute_ZeroProfitMakesNoRecord(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice@example.com", "0")

	juneFirst := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, juneFirst)
	// avg = 0.10/30, profit far below one cent: floors to zero.
	insertSnapshots(t, service, user.Id, juneFirst, 1, "0.10")

	if err := service.SetProfitRate(ctx, round.Id, decimal.RequireFromString("1.0000"), "admin"); err != nil {
		t.Fatalf("SetProfitRate failed: %v", err)
	}

	completed, err := service.GetUserTransactions(ctx, user.Id, models.StatusCompleted)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(completed) != 0 {
		t.Errorf("Expected no PROFIT transaction for zero profit, got %d", len(completed))
	}
}

func TestDistribute_SkipsMissingUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice@example.com", "0")

	juneFirst := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, juneFirst)
	insertSnapshots(t, service, user.Id, juneFirst, 30, "100.00")
	// Snapshots for a user that no longer exists must be skipped, not fail
	// the batch.
	insertSnapshots(t, service, "ghost-user", juneFirst, 30, "500.00")

	if err := service.SetProfitRate(ctx, round.Id, decimal.RequireFromString("10.0000"), "admin"); err != nil {
		t.Fatalf("SetProfitRate failed: %v", err)
	}

	fresh, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !fresh.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expected surviving user paid 10.00, got %s", fresh.Balance.String())
	}
}

func TestSetProfitRate_SecondCallIsConflict(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice@example.com", "0")

	juneFirst := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, juneFirst)
	insertSnapshots(t, service, user.Id, juneFirst, 30, "100.00")

	rate := decimal.RequireFromString("10.0000")
	if err := service.SetProfitRate(ctx, round.Id, rate, "admin"); err != nil {
		t.Fatalf("First SetProfitRate failed: %v", err)
	}
	if err := service.SetProfitRate(ctx, round.Id, rate, "admin"); !errors.Is(err, store.ErrRateAlreadySet) {
		t.Errorf("Expected ErrRateAlreadySet, got %v", err)
	}

	// Profit must have been paid exactly once.
	fresh, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !fresh.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expected single payout of 10.00, got balance %s", fresh.Balance.String())
	}
}

// Concurrent duplicate settlement attempts must pay at most once.
func TestSetProfitRate_ConcurrentDuplicates(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice@example.com", "0")

	juneFirst := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, juneFirst)
	insertSnapshots(t, service, user.Id, juneFirst, 30, "100.00")

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := service.SetProfitRate(ctx, round.Id, decimal.RequireFromString("10.0000"), "admin")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, store.ErrRateAlreadySet) {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly 1 successful settlement, got %d", successes)
	}

	fresh, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !fresh.Balance.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expected single payout of 10.00, got balance %s", fresh.Balance.String())
	}

	profits, err := service.GetUserTransactions(ctx, user.Id, models.StatusCompleted)
	if err != nil {
		t.Fatalf("GetUserTransactions failed: %v", err)
	}
	if len(profits) != 1 {
		t.Errorf("Expected exactly 1 PROFIT transaction, got %d", len(profits))
	}
}

func TestDistribute_MultipleUsers(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	juneFirst := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	round := closedRoundForMonth(t, service, juneFirst)

	users := make([]*models.User, 5)
	for i := range users {
		users[i] = createTestUser(t, service, fmt.Sprintf("user%d@example.com", i), "0")
		// User i held (i+1)*100.00 all month.
		insertSnapshots(t, service, users[i].Id, juneFirst, 30, fmt.Sprintf("%d00.00", i+1))
	}

	if err := service.SetProfitRate(ctx, round.Id, decimal.RequireFromString("10.0000"), "admin"); err != nil {
		t.Fatalf("SetProfitRate failed: %v", err)
	}

	for i, user := range users {
		fresh, err := service.GetUserById(ctx, user.Id)
		if err != nil {
			t.Fatalf("GetUserById failed: %v", err)
		}
		expected := decimal.NewFromInt(int64((i + 1) * 10))
		if !fresh.Balance.Equal(expected) {
			t.Errorf("User %d: expected balance %s, got %s", i, expected.String(), fresh.Balance.String())
		}
	}
}
