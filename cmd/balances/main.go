/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"custody-ledger-go/internal/common"
	"custody-ledger-go/internal/database"
	"custody-ledger-go/internal/models"

	"go.uber.org/zap"
)

func printUser(ctx context.Context, dbService *database.Service, user models.User, showPending bool) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Email, user.Role)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Balance: %s\n", user.Balance.String())
	common.PrintBoxSeparator(78)

	if !showPending {
		return
	}

	pending, err := dbService.GetUserTransactions(ctx, user.Id, models.StatusPending)
	if err != nil {
		zap.L().Error("Failed to get pending transactions",
			zap.String("user_id", user.Id), zap.Error(err))
		return
	}

	if len(pending) == 0 {
		fmt.Println("└  no pending transactions")
		return
	}
	for i, txn := range pending {
		prefix := common.BoxPrefix(i == len(pending)-1)
		fmt.Printf("%s PENDING %s %s (%s)\n", prefix, txn.Type, txn.Amount.String(), txn.Id)
	}
}

func main() {
	pending := flag.Bool("pending", false, "Also show each user's pending transactions")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, _, err := common.InitializeDatabase(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := dbService.GetUsers(ctx)
	if err != nil {
		logger.Fatal("Failed to get users", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("User balances (%d users)", len(users)), common.DefaultWidth)
	for _, user := range users {
		printUser(ctx, dbService, user, *pending)
	}
}
