package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"vendorbid/models"
)

const requirementColumns = `r.id, r.vendor_id, r.title, r.description, r.materials,
	r.budget_min AS "budget.min", r.budget_max AS "budget.max", r.delivery_location,
	r.delivery_date, r.bidding_end_date, r.status, r.total_bids, r.awarded_to, r.awarded_bid,
	r.tags, r.created_at, r.updated_at`

const vendorColumns = `u.id AS "vendor.id", u.name AS "vendor.name", u.email AS "vendor.email",
	u.phone AS "vendor.phone", u.verified AS "vendor.verified"`

// RequirementFilter описывает фильтры публичного списка заявок
type RequirementFilter struct {
	Status    models.RequirementStatus
	Locality  string
	Material  string
	MinBudget *decimal.Decimal
	MaxBudget *decimal.Decimal
	Limit     int
	Offset    int
}

func (s *Storage) CreateRequirement(ctx context.Context, r *models.Requirement) error {
	query := `
        INSERT INTO requirements
            (vendor_id, title, description, materials, budget_min, budget_max,
             delivery_location, delivery_date, bidding_end_date, tags)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, status, total_bids, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		r.VendorID, r.Title, r.Description, r.Materials, r.Budget.Min, r.Budget.Max,
		r.DeliveryLocation, r.DeliveryDate, r.BiddingEndDate, r.Tags).
		Scan(&r.ID, &r.Status, &r.TotalBids, &r.CreatedAt, &r.UpdatedAt)
}

func (s *Storage) GetRequirement(ctx context.Context, id int64) (*models.Requirement, error) {
	r := &models.Requirement{}
	query := `
        SELECT ` + requirementColumns + `, ` + vendorColumns + `
        FROM requirements r
        JOIN users u ON u.id = r.vendor_id
        WHERE r.id=$1`
	if err := s.db.GetContext(ctx, r, query, id); err != nil {
		return nil, notFound(err)
	}
	if r.AwardedTo != nil {
		winner := &models.UserSummary{}
		err := s.db.GetContext(ctx, winner,
			`SELECT id, name, email, phone, verified FROM users WHERE id=$1`, *r.AwardedTo)
		if err != nil {
			return nil, fmt.Errorf("awarded supplier: %w", err)
		}
		r.AwardedSupplier = winner
	}
	return r, nil
}

// ListRequirements возвращает страницу заявок и общее количество под фильтром
func (s *Storage) ListRequirements(ctx context.Context, f RequirementFilter) ([]models.Requirement, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conds = append(conds, "r.status = "+arg(f.Status))
	}
	if f.Locality != "" {
		conds = append(conds, "r.delivery_location->>'locality' ILIKE "+arg(likePattern(f.Locality)))
	}
	if f.Material != "" {
		conds = append(conds, `EXISTS (
            SELECT 1 FROM jsonb_array_elements(r.materials) m
            WHERE m->>'name' ILIKE `+arg(likePattern(f.Material))+`)`)
	}
	// Фильтруем по вложенным полям бюджета, а не по объекту целиком
	if f.MinBudget != nil {
		conds = append(conds, "r.budget_min >= "+arg(*f.MinBudget))
	}
	if f.MaxBudget != nil {
		conds = append(conds, "r.budget_max <= "+arg(*f.MaxBudget))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(1) FROM requirements r"+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + requirementColumns + `, ` + vendorColumns + `
        FROM requirements r
        JOIN users u ON u.id = r.vendor_id` + where +
		` ORDER BY r.created_at DESC, r.id DESC` +
		fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)

	requirements := []models.Requirement{}
	if err := s.db.SelectContext(ctx, &requirements, query, args...); err != nil {
		return nil, 0, err
	}
	return requirements, total, nil
}

func (s *Storage) ListVendorRequirements(ctx context.Context, vendorID int64) ([]models.Requirement, error) {
	query := `
        SELECT ` + requirementColumns + `
        FROM requirements r
        WHERE r.vendor_id=$1
        ORDER BY r.created_at DESC, r.id DESC`
	requirements := []models.Requirement{}
	if err := s.db.SelectContext(ctx, &requirements, query, vendorID); err != nil {
		return nil, err
	}
	return requirements, nil
}

// UpdateRequirement сохраняет изменения, только пока заявка открыта
func (s *Storage) UpdateRequirement(ctx context.Context, r *models.Requirement) error {
	query := `
        UPDATE requirements
        SET title=$1, description=$2, materials=$3, budget_min=$4, budget_max=$5,
            delivery_location=$6, delivery_date=$7, bidding_end_date=$8, tags=$9, updated_at=NOW()
        WHERE id=$10 AND status='open'
        RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query,
		r.Title, r.Description, r.Materials, r.Budget.Min, r.Budget.Max,
		r.DeliveryLocation, r.DeliveryDate, r.BiddingEndDate, r.Tags, r.ID).
		Scan(&r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStateChanged
	}
	return err
}

// AwardBid в одной транзакции принимает выбранное предложение, отклоняет остальные
// и закрывает заявку. Строка заявки блокируется до коммита.
func (s *Storage) AwardBid(ctx context.Context, requirementID, bidID int64) (*models.Requirement, *models.Bid, error) {
	var (
		requirement models.Requirement
		bid         models.Bid
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var status models.RequirementStatus
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM requirements WHERE id=$1 FOR UPDATE`, requirementID)
		if err != nil {
			return notFound(err)
		}
		if !status.AcceptsBids() {
			return ErrStateChanged
		}

		var bidStatus models.BidStatus
		err = tx.GetContext(ctx, &bidStatus,
			`SELECT status FROM bids WHERE id=$1 AND requirement_id=$2 FOR UPDATE`, bidID, requirementID)
		if err != nil {
			return notFound(err)
		}
		if bidStatus != models.BidPending {
			return ErrStateChanged
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE bids
            SET status='rejected', is_winning=FALSE, updated_at=NOW()
            WHERE requirement_id=$1 AND id<>$2`, requirementID, bidID)
		if err != nil {
			return fmt.Errorf("reject other bids: %w", err)
		}

		err = tx.GetContext(ctx, &bid, `
            UPDATE bids AS b
            SET status='accepted', is_winning=TRUE, updated_at=NOW()
            WHERE b.id=$1
            RETURNING `+bidColumns, bidID)
		if err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}

		err = tx.GetContext(ctx, &requirement, `
            UPDATE requirements AS r
            SET status='awarded', awarded_to=$1, awarded_bid=$2, updated_at=NOW()
            WHERE r.id=$3
            RETURNING `+requirementColumns, bid.SupplierID, bidID, requirementID)
		if err != nil {
			return fmt.Errorf("award requirement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &requirement, &bid, nil
}

// likePattern экранирует спецсимволы LIKE и ищет подстроку
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
