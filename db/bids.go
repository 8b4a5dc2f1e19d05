package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vendorbid/models"
)

const bidColumns = `b.id, b.requirement_id, b.supplier_id, b.amount, b.delivery_time, b.description,
	b.materials, b.terms, b.photos, b.status, b.is_winning, b.reviews, b.submitted_at, b.updated_at`

const supplierColumns = `u.id AS "supplier.id", u.name AS "supplier.name", u.email AS "supplier.email",
	u.phone AS "supplier.phone", u.verified AS "supplier.verified"`

const requirementSummaryColumns = `r.id AS "requirement.id", r.title AS "requirement.title",
	r.description AS "requirement.description", r.status AS "requirement.status",
	r.budget_min AS "requirement.budget.min", r.budget_max AS "requirement.budget.max",
	r.bidding_end_date AS "requirement.bidding_end_date", r.vendor_id AS "requirement.vendor_id"`

// CreateBid сохраняет предложение и в той же транзакции увеличивает счётчик заявки,
// переводя её в статус bidding.
func (s *Storage) CreateBid(ctx context.Context, b *models.Bid) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
            INSERT INTO bids
                (requirement_id, supplier_id, amount, delivery_time, description, materials, terms, photos)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING id, status, is_winning, reviews, submitted_at, updated_at`
		err := tx.QueryRowContext(ctx, query,
			b.RequirementID, b.SupplierID, b.Amount, b.DeliveryTime, b.Description,
			b.Materials, b.Terms, b.Photos).
			Scan(&b.ID, &b.Status, &b.IsWinning, &b.Reviews, &b.SubmittedAt, &b.UpdatedAt)
		if isUniqueViolation(err, bidsUniqueKey) {
			return ErrDuplicateBid
		}
		if err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
            UPDATE requirements
            SET total_bids = total_bids + 1, status = 'bidding', updated_at = NOW()
            WHERE id=$1 AND status IN ('open', 'bidding')`, b.RequirementID)
		if err != nil {
			return fmt.Errorf("bump bid counter: %w", err)
		}
		return expectRows(res)
	})
}

func (s *Storage) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT ` + bidColumns + ` FROM bids b WHERE b.id=$1`
	if err := s.db.GetContext(ctx, b, query, id); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// FindSupplierBid ищет предложение поставщика по заявке, в любом статусе
func (s *Storage) FindSupplierBid(ctx context.Context, requirementID, supplierID int64) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT ` + bidColumns + ` FROM bids b WHERE b.requirement_id=$1 AND b.supplier_id=$2`
	if err := s.db.GetContext(ctx, b, query, requirementID, supplierID); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// UpdateBid меняет изменяемые поля, пока предложение в статусе pending
func (s *Storage) UpdateBid(ctx context.Context, b *models.Bid) error {
	query := `
        UPDATE bids
        SET amount=$1, delivery_time=$2, description=$3, materials=$4, terms=$5, updated_at=NOW()
        WHERE id=$6 AND status='pending'
        RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query,
		b.Amount, b.DeliveryTime, b.Description, b.Materials, b.Terms, b.ID).
		Scan(&b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStateChanged
	}
	return err
}

// WithdrawBid отзывает предложение и уменьшает счётчик заявки; когда счётчик
// обнуляется, заявка возвращается в open.
func (s *Storage) WithdrawBid(ctx context.Context, bidID int64) (*models.Bid, error) {
	var bid models.Bid
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &bid, `
            UPDATE bids AS b
            SET status='withdrawn', updated_at=NOW()
            WHERE b.id=$1 AND b.status='pending'
            RETURNING `+bidColumns, bidID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStateChanged
		}
		if err != nil {
			return fmt.Errorf("withdraw bid: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE requirements
            SET total_bids = GREATEST(total_bids - 1, 0),
                status = CASE WHEN total_bids <= 1 AND status = 'bidding' THEN 'open' ELSE status END,
                updated_at = NOW()
            WHERE id=$1`, bid.RequirementID)
		if err != nil {
			return fmt.Errorf("drop bid counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListBidsForRequirement возвращает предложения по возрастанию цены.
// withReviews добавляет отзывы о поставщике.
func (s *Storage) ListBidsForRequirement(ctx context.Context, requirementID int64, withReviews bool) ([]models.Bid, error) {
	cols := bidColumns + `, ` + supplierColumns
	if withReviews {
		cols += `, u.reviews AS "supplier.reviews"`
	}
	query := `
        SELECT ` + cols + `
        FROM bids b
        JOIN users u ON u.id = b.supplier_id
        WHERE b.requirement_id=$1
        ORDER BY b.amount ASC, b.id ASC`
	bids := []models.Bid{}
	if err := s.db.SelectContext(ctx, &bids, query, requirementID); err != nil {
		return nil, err
	}
	return bids, nil
}

func (s *Storage) ListSupplierBids(ctx context.Context, supplierID int64) ([]models.Bid, error) {
	query := `
        SELECT ` + bidColumns + `, ` + requirementSummaryColumns + `
        FROM bids b
        JOIN requirements r ON r.id = b.requirement_id
        WHERE b.supplier_id=$1
        ORDER BY b.submitted_at DESC, b.id DESC`
	bids := []models.Bid{}
	if err := s.db.SelectContext(ctx, &bids, query, supplierID); err != nil {
		return nil, err
	}
	return bids, nil
}

// AddBidReview дописывает отзыв к предложению
func (s *Storage) AddBidReview(ctx context.Context, bidID int64, review models.Review) (*models.Bid, error) {
	b := &models.Bid{}
	query := `
        UPDATE bids AS b
        SET reviews = b.reviews || $1::jsonb
        WHERE b.id=$2
        RETURNING ` + bidColumns
	if err := s.db.GetContext(ctx, b, query, models.Reviews{review}, bidID); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}
