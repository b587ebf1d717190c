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

package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SnapshotTaker is the one operation the daemon drives.
type SnapshotTaker interface {
	RecordDailySnapshot(ctx context.Context, now time.Time) (int, error)
}

// Snapshotter fires the daily snapshot cycle at every UTC midnight, or on a
// fixed interval when one is configured (development and tests).
type Snapshotter struct {
	store    SnapshotTaker
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

type SnapshotterConfig struct {
	Store SnapshotTaker
	// Interval overrides UTC-midnight alignment when non-zero.
	Interval time.Duration
}

func NewSnapshotter(cfg SnapshotterConfig) *Snapshotter {
	return &Snapshotter{
		store:    cfg.Store,
		interval: cfg.Interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the snapshot cycle once immediately (recovery after downtime:
// the cycle is idempotent per day) and then loops in the background.
func (s *Snapshotter) Start(ctx context.Context) error {
	zap.L().Info("Starting snapshot scheduler")

	s.runOnce(ctx)
	go s.loop(ctx)

	zap.L().Info("Snapshot scheduler started",
		zap.Duration("interval_override", s.interval))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Snapshotter) Stop() {
	zap.L().Info("Stopping snapshot scheduler")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Snapshot scheduler stopped")
}

func (s *Snapshotter) loop(ctx context.Context) {
	defer close(s.doneChan)

	for {
		timer := time.NewTimer(s.untilNextRun(time.Now().UTC()))
		select {
		case <-timer.C:
			s.runOnce(ctx)
		case <-s.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Snapshotter) untilNextRun(now time.Time) time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}

func (s *Snapshotter) runOnce(ctx context.Context) {
	inserted, err := s.store.RecordDailySnapshot(ctx, time.Now().UTC())
	if err != nil {
		zap.L().Error("Daily snapshot cycle failed", zap.Error(err))
		return
	}
	zap.L().Info("Daily snapshot cycle finished", zap.Int("inserted", inserted))
}
