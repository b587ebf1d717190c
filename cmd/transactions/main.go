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
	"os"
	"strings"

	"custody-ledger-go/internal/common"
	"custody-ledger-go/internal/models"
	"custody-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func usage() {
	fmt.Println(`Usage:
  transactions -action request -user <user-id> -type DEPOSIT|WITHDRAWAL -amount <decimal>
  transactions -action approve -tx <transaction-id> -admin <admin-id>
  transactions -action reject  -tx <transaction-id> -admin <admin-id>
  transactions -action list    [-user <user-id>] [-status PENDING|APPROVED|REJECTED|COMPLETED]`)
	os.Exit(1)
}

func main() {
	action := flag.String("action", "", "request, approve, reject or list")
	userId := flag.String("user", "", "User id")
	txType := flag.String("type", "", "DEPOSIT or WITHDRAWAL")
	amountStr := flag.String("amount", "", "Amount, e.g. 100.00")
	txId := flag.String("tx", "", "Transaction id")
	adminId := flag.String("admin", "", "Admin user id performing the status change")
	status := flag.String("status", "", "Status filter for list")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, _, err := common.InitializeDatabase(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	switch *action {
	case "request":
		if *userId == "" || *txType == "" || *amountStr == "" {
			usage()
		}
		amount, err := decimal.NewFromString(*amountStr)
		if err != nil {
			logger.Fatal("Invalid amount", zap.String("amount", *amountStr), zap.Error(err))
		}

		txn, err := dbService.CreateTransaction(ctx, store.CreateTransactionParams{
			UserId: *userId,
			Type:   strings.ToUpper(*txType),
			Amount: amount,
		})
		if err != nil {
			logger.Fatal("Failed to create transaction", zap.Error(err))
		}
		fmt.Printf("Created %s transaction %s for %s, status %s\n",
			txn.Type, txn.Id, txn.Amount.String(), txn.Status)

	case "approve", "reject":
		if *txId == "" || *adminId == "" {
			usage()
		}
		newStatus := models.StatusApproved
		if *action == "reject" {
			newStatus = models.StatusRejected
		}

		txn, err := dbService.UpdateTransactionStatus(ctx, store.UpdateTransactionStatusParams{
			TransactionId:   *txId,
			NewStatus:       newStatus,
			ModifierAdminId: *adminId,
		})
		if err != nil {
			logger.Fatal("Failed to update transaction", zap.Error(err))
		}
		if txn.HasTaxAmount {
			fmt.Printf("Transaction %s is now %s (tax %s)\n", txn.Id, txn.Status, txn.TaxAmount.String())
		} else {
			fmt.Printf("Transaction %s is now %s\n", txn.Id, txn.Status)
		}

	case "list":
		var transactions []models.Transaction
		var err error
		if *userId != "" {
			transactions, err = dbService.GetUserTransactions(ctx, *userId, strings.ToUpper(*status))
		} else if *status != "" {
			transactions, err = dbService.GetTransactionsByStatus(ctx, strings.ToUpper(*status))
		} else {
			usage()
		}
		if err != nil {
			logger.Fatal("Failed to list transactions", zap.Error(err))
		}

		common.PrintHeader(fmt.Sprintf("Transactions (%d)", len(transactions)), common.DefaultWidth)
		for i, txn := range transactions {
			prefix := common.BoxPrefix(i == len(transactions)-1)
			source := txn.SourceId
			if source == "" {
				source = "none"
			}
			fmt.Printf("%s %s  %-10s %12s  %-9s user=%s source=%s\n",
				prefix, txn.Id, txn.Type, txn.Amount.String(), txn.Status, txn.UserId, source)
		}

	default:
		usage()
	}
}
