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
	"os"
	"os/signal"
	"syscall"
	"time"

	"custody-ledger-go/internal/common"
	"custody-ledger-go/internal/scheduler"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run one snapshot cycle and exit (for external cron wiring)")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting snapshot daemon")

	dbService, cfg, err := common.InitializeDatabase(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *once {
		inserted, err := dbService.RecordDailySnapshot(ctx, time.Now().UTC())
		if err != nil {
			zap.L().Fatal("Snapshot cycle failed", zap.Error(err))
		}
		zap.L().Info("Snapshot cycle finished", zap.Int("inserted", inserted))
		return
	}

	snapshotter := scheduler.NewSnapshotter(scheduler.SnapshotterConfig{
		Store:    dbService,
		Interval: cfg.Scheduler.SnapshotInterval,
	})
	if err := snapshotter.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start snapshot scheduler", zap.Error(err))
	}

	zap.L().Info("Snapshot daemon running")
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping scheduler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		snapshotter.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Scheduler stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
