package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultTaxPercent applies until an admin sets a tax rate.
const defaultTaxPercent = "1.0000"

// GetTaxRatePercent returns the platform tax rate, lazily creating the
// settings row with the default on first read.
func (s *Service) GetTaxRatePercent(ctx context.Context) (decimal.Decimal, error) {
	var id, taxStr string
	var updatedAt any
	err := s.db.QueryRowContext(ctx, queryGetSettings).Scan(&id, &taxStr, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		taxStr = defaultTaxPercent
		if _, err := s.db.ExecContext(ctx, queryInsertSettings, uuid.New().String(), taxStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to create default settings: %w", err)
		}
		zap.L().Info("Created default settings", zap.String("tax_percent", taxStr))
	} else if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read settings: %w", err)
	}

	rate, err := decimal.NewFromString(taxStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse tax percent '%s': %w", taxStr, err)
	}
	return rate, nil
}

// UpdateTaxRate sets the platform tax rate, creating the settings row if it
// does not exist yet.
func (s *Service) UpdateTaxRate(ctx context.Context, taxPercent decimal.Decimal) error {
	var id, taxStr string
	var updatedAt any
	err := s.db.QueryRowContext(ctx, queryGetSettings).Scan(&id, &taxStr, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		_, err := s.db.ExecContext(ctx, queryInsertSettings, uuid.New().String(), taxPercent.String())
		if err != nil {
			return fmt.Errorf("failed to create settings: %w", err)
		}
		zap.L().Info("Tax rate set", zap.String("tax_percent", taxPercent.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, queryUpdateSettings, taxPercent.String(), id); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	zap.L().Info("Tax rate updated",
		zap.String("old_tax_percent", taxStr),
		zap.String("new_tax_percent", taxPercent.String()))
	return nil
}
