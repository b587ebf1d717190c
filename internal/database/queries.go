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

package database

const (
	// User queries
	queryGetUsers = `
		SELECT id, email, password_hash, role, balance, created_at, updated_at
		FROM users
		ORDER BY created_at`

	queryGetUserById = `
		SELECT id, email, password_hash, role, balance, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT id, email, password_hash, role, balance, created_at, updated_at
		FROM users
		WHERE email = ?`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, email, password_hash, role, balance)
		VALUES (?, ?, ?, ?, ?)`

	// Ledger queries
	queryGetUserBalance = `
		SELECT balance
		FROM users
		WHERE id = ?`

	queryUpdateUserBalance = `
		UPDATE users
		SET balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (id, user_id, modifier_admin_id, type, amount, tax_amount, source_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, modifier_admin_id, type, amount, tax_amount, source_id, status, created_at, updated_at`

	queryGetTransactionById = `
		SELECT id, user_id, modifier_admin_id, type, amount, tax_amount, source_id, status, created_at, updated_at
		FROM transactions
		WHERE id = ?`

	queryCountPendingTransactions = `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = ? AND status = 'PENDING'`

	queryGetUserTransactionsAll = `
		SELECT id, user_id, modifier_admin_id, type, amount, tax_amount, source_id, status, created_at, updated_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC`

	queryGetUserTransactionsByStatus = `
		SELECT id, user_id, modifier_admin_id, type, amount, tax_amount, source_id, status, created_at, updated_at
		FROM transactions
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC`

	queryGetTransactionsByStatus = `
		SELECT id, user_id, modifier_admin_id, type, amount, tax_amount, source_id, status, created_at, updated_at
		FROM transactions
		WHERE status = ?
		ORDER BY created_at DESC`

	queryApproveTransaction = `
		UPDATE transactions
		SET status = 'APPROVED', tax_amount = ?, modifier_admin_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'PENDING'`

	queryRejectTransaction = `
		UPDATE transactions
		SET status = 'REJECTED', modifier_admin_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'PENDING'`

	// Snapshot queries
	queryInsertSnapshot = `
		INSERT OR IGNORE INTO snapshots (id, user_id, date, balance)
		VALUES (?, ?, ?, ?)`

	querySnapshotBalancesInRange = `
		SELECT user_id, balance
		FROM snapshots
		WHERE date BETWEEN ? AND ?`

	queryCountSnapshotsForDate = `
		SELECT COUNT(*)
		FROM snapshots
		WHERE date = ?`

	// Round queries
	queryInsertRound = `
		INSERT INTO rounds (id, start_date, end_date)
		VALUES (?, ?, ?)`

	queryGetRoundById = `
		SELECT id, start_date, end_date, is_closed, profit_rate_percent, modifier_admin_id, created_at
		FROM rounds
		WHERE id = ?`

	queryGetRoundByDates = `
		SELECT id, start_date, end_date, is_closed, profit_rate_percent, modifier_admin_id, created_at
		FROM rounds
		WHERE start_date = ? AND end_date = ?`

	queryGetRounds = `
		SELECT id, start_date, end_date, is_closed, profit_rate_percent, modifier_admin_id, created_at
		FROM rounds
		ORDER BY start_date DESC`

	queryCloseRound = `
		UPDATE rounds
		SET is_closed = 1
		WHERE id = ? AND is_closed = 0`

	querySetProfitRate = `
		UPDATE rounds
		SET profit_rate_percent = ?, modifier_admin_id = ?
		WHERE id = ? AND profit_rate_percent IS NULL`

	// Settings queries
	queryGetSettings = `
		SELECT id, tax_percent, updated_at
		FROM settings
		LIMIT 1`

	queryInsertSettings = `
		INSERT INTO settings (id, tax_percent)
		VALUES (?, ?)`

	queryUpdateSettings = `
		UPDATE settings
		SET tax_percent = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
)
