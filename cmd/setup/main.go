package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"custody-ledger-go/internal/common"
	"custody-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	seedFile := flag.String("seed", "", "Optional path to users.yaml with users to create")
	taxRate := flag.String("tax", "", "Optional initial tax rate percent (e.g. 2.0000)")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, _, err := common.InitializeDatabase(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	fmt.Println("Schema initialized.")

	if *taxRate != "" {
		rate, err := decimal.NewFromString(*taxRate)
		if err != nil {
			logger.Fatal("Invalid tax rate", zap.String("tax", *taxRate), zap.Error(err))
		}
		if err := dbService.UpdateTaxRate(ctx, rate); err != nil {
			logger.Fatal("Failed to set tax rate", zap.Error(err))
		}
		fmt.Printf("Tax rate set to %s%%.\n", rate.String())
	}

	if *seedFile == "" {
		return
	}

	users, err := common.LoadSeedUsers(*seedFile)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.Error(err))
	}

	created := 0
	for _, seed := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("Failed to hash password", zap.String("email", seed.Email), zap.Error(err))
		}

		balance := decimal.Zero
		if seed.Balance != "" {
			balance, err = decimal.NewFromString(seed.Balance)
			if err != nil {
				logger.Fatal("Invalid seed balance",
					zap.String("email", seed.Email),
					zap.String("balance", seed.Balance),
					zap.Error(err))
			}
		}

		user, err := dbService.CreateUser(ctx, store.CreateUserParams{
			Id:           uuid.New().String(),
			Email:        seed.Email,
			PasswordHash: string(hash),
			Role:         seed.Role,
			Balance:      balance,
		})
		if err != nil {
			logger.Error("Failed to create seed user", zap.String("email", seed.Email), zap.Error(err))
			continue
		}

		created++
		fmt.Printf("Created user %s (%s), balance %s\n", user.Email, user.Id, user.Balance.String())
	}

	if created < len(users) {
		fmt.Printf("Seeded %d of %d users (see log for failures).\n", created, len(users))
		os.Exit(1)
	}
	fmt.Printf("Seeded %d users.\n", created)
}
