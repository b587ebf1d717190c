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

	"custody-ledger-go/internal/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	roundId := flag.String("round", "", "Round id to settle")
	rateStr := flag.String("rate", "", "Profit rate percent, e.g. 10.0000")
	adminId := flag.String("admin", "", "Admin user id setting the rate")
	list := flag.Bool("list", false, "List rounds instead of setting a rate")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, _, err := common.InitializeDatabase(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *list {
		rounds, err := dbService.GetRounds(ctx)
		if err != nil {
			logger.Fatal("Failed to list rounds", zap.Error(err))
		}

		common.PrintHeader(fmt.Sprintf("Rounds (%d)", len(rounds)), common.DefaultWidth)
		for i, round := range rounds {
			prefix := common.BoxPrefix(i == len(rounds)-1)
			state := "OPEN"
			if round.IsClosed {
				state = "CLOSED"
			}
			rate := "unset"
			if round.HasProfitRate {
				rate = round.ProfitRatePercent.String() + "%"
				state = "DISTRIBUTED"
			}
			fmt.Printf("%s %s  %s → %s  %-11s rate=%s\n",
				prefix, round.Id, round.StartDate, round.EndDate, state, rate)
		}
		return
	}

	if *roundId == "" || *rateStr == "" || *adminId == "" {
		fmt.Println("Usage: setrate -round <round-id> -rate <percent> -admin <admin-id>")
		fmt.Println("       setrate -list")
		os.Exit(1)
	}

	rate, err := decimal.NewFromString(*rateStr)
	if err != nil {
		logger.Fatal("Invalid rate", zap.String("rate", *rateStr), zap.Error(err))
	}

	if err := dbService.SetProfitRate(ctx, *roundId, rate, *adminId); err != nil {
		logger.Fatal("Failed to set profit rate", zap.Error(err))
	}

	fmt.Printf("Round %s settled at %s%%.\n", *roundId, rate.String())
}
