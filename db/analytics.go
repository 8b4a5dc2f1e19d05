package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vendorbid/models"
)

const analyticsColumns = `vendor_id, sales_data, material_usage, insights, last_updated`

func (s *Storage) GetAnalytics(ctx context.Context, vendorID int64) (*models.Analytics, error) {
	a := &models.Analytics{}
	query := `SELECT ` + analyticsColumns + ` FROM vendor_analytics WHERE vendor_id=$1`
	if err := s.db.GetContext(ctx, a, query, vendorID); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// UpdateAnalytics блокирует документ продавца (или создаёт пустой), применяет fn
// и сохраняет результат в той же транзакции.
func (s *Storage) UpdateAnalytics(ctx context.Context, vendorID int64, fn func(a *models.Analytics) error) (*models.Analytics, error) {
	var a models.Analytics
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		// Первая запись создаёт строку, чтобы было что блокировать
		_, err := tx.ExecContext(ctx, `
            INSERT INTO vendor_analytics (vendor_id) VALUES ($1)
            ON CONFLICT (vendor_id) DO NOTHING`, vendorID)
		if err != nil {
			return fmt.Errorf("init analytics: %w", err)
		}

		err = tx.GetContext(ctx, &a,
			`SELECT `+analyticsColumns+` FROM vendor_analytics WHERE vendor_id=$1 FOR UPDATE`, vendorID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock analytics: %w", err)
		}

		if err := fn(&a); err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
            UPDATE vendor_analytics
            SET sales_data=$1, material_usage=$2, insights=$3, last_updated=NOW()
            WHERE vendor_id=$4
            RETURNING last_updated`,
			a.SalesData, a.MaterialUsage, a.Insights, vendorID).Scan(&a.LastUpdated)
		if err != nil {
			return fmt.Errorf("save analytics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
