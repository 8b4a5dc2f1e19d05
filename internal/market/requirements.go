package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vendorbid/db"
	"vendorbid/internal/events"
	"vendorbid/internal/policy"
	"vendorbid/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	publishTimeout   = 5 * time.Second
)

// BudgetInput хранит указатели, чтобы отличать отсутствующее значение от нуля
type BudgetInput struct {
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
}

type RequirementInput struct {
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Materials        models.RequiredMaterials `json:"materials"`
	Budget           BudgetInput              `json:"budget"`
	DeliveryLocation models.Address           `json:"deliveryLocation"`
	DeliveryDate     time.Time                `json:"deliveryDate"`
	BiddingEndDate   time.Time                `json:"biddingEndDate"`
	Tags             []string                 `json:"tags"`
}

// RequirementPatch содержит только переданные поля
type RequirementPatch struct {
	Title            *string
	Description      *string
	Materials        *models.RequiredMaterials
	Budget           *BudgetInput
	DeliveryLocation *models.Address
	DeliveryDate     *time.Time
	BiddingEndDate   *time.Time
	Tags             *[]string
}

type RequirementQuery struct {
	Status    string
	Locality  string
	Material  string
	MinBudget *decimal.Decimal
	MaxBudget *decimal.Decimal
	Page      int
	Limit     int
}

type RequirementPage struct {
	Requirements []models.Requirement `json:"requirements"`
	TotalPages   int                  `json:"totalPages"`
	CurrentPage  int                  `json:"currentPage"`
	Total        int                  `json:"total"`
}

type RequirementDetail struct {
	Requirement *models.Requirement `json:"requirement"`
	Bids        []models.Bid        `json:"bids"`
	TotalBids   int                 `json:"totalBids"`
}

func validateMaterials(errs *fieldErrors, materials models.RequiredMaterials) {
	if len(materials) == 0 {
		errs.add("materials", "At least one material is required")
		return
	}
	for i, m := range materials {
		field := fmt.Sprintf("materials[%d]", i)
		if strings.TrimSpace(m.Name) == "" {
			errs.add(field+".name", "Material name is required")
		}
		if m.Quantity <= 0 {
			errs.add(field+".quantity", "Quantity must be greater than 0")
		}
		if !models.ValidUnit(m.Unit) {
			errs.add(field+".unit", "Unit must be one of "+strings.Join(models.Units, ", "))
		}
	}
}

func validateBudget(errs *fieldErrors, b BudgetInput) {
	if b.Min == nil {
		errs.add("budget.min", "Minimum budget is required")
	} else if b.Min.IsNegative() {
		errs.add("budget.min", "Minimum budget must not be negative")
	}
	if b.Max == nil {
		errs.add("budget.max", "Maximum budget is required")
	} else if b.Max.IsNegative() {
		errs.add("budget.max", "Maximum budget must not be negative")
	}
}

func validateRequirementInput(in *RequirementInput) error {
	var errs fieldErrors
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.Title == "" {
		errs.add("title", "Title is required")
	}
	validateMaterials(&errs, in.Materials)
	validateBudget(&errs, in.Budget)
	if in.DeliveryDate.IsZero() {
		errs.add("deliveryDate", "Delivery date is required")
	}
	if in.BiddingEndDate.IsZero() {
		errs.add("biddingEndDate", "Bidding end date is required")
	}
	return errs.err()
}

func (s *Service) CreateRequirement(ctx context.Context, id Identity, in RequirementInput) (*models.Requirement, error) {
	if err := validateRequirementInput(&in); err != nil {
		return nil, err
	}
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.CreateRequirement, policy.Resource{}); err != nil {
		return nil, err
	}

	r := &models.Requirement{
		VendorID:         actor.ID,
		Title:            in.Title,
		Description:      in.Description,
		Materials:        in.Materials,
		Budget:           models.Budget{Min: *in.Budget.Min, Max: *in.Budget.Max},
		DeliveryLocation: in.DeliveryLocation,
		DeliveryDate:     in.DeliveryDate,
		BiddingEndDate:   in.BiddingEndDate,
		Tags:             in.Tags,
	}
	if err := s.store.CreateRequirement(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("requirement_id", r.ID).Int64("vendor_id", actor.ID).Msg("requirement created")
	return r, nil
}

// ListRequirements отдаёт публичную страницу заявок.
// minBudget сравнивается с budget.min, maxBudget с budget.max.
func (s *Service) ListRequirements(ctx context.Context, q RequirementQuery) (*RequirementPage, error) {
	status := models.RequirementStatus(q.Status)
	if status != "" && !models.ValidRequirementStatus(status) {
		return nil, Invalid(FieldError{Field: "status", Message: "Invalid status"})
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, total, err := s.store.ListRequirements(ctx, db.RequirementFilter{
		Status:    status,
		Locality:  strings.TrimSpace(q.Locality),
		Material:  strings.TrimSpace(q.Material),
		MinBudget: q.MinBudget,
		MaxBudget: q.MaxBudget,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	return &RequirementPage{
		Requirements: items,
		TotalPages:   (total + limit - 1) / limit,
		CurrentPage:  page,
		Total:        total,
	}, nil
}

// GetRequirement публичен: заявка и все её предложения по возрастанию цены
func (s *Service) GetRequirement(ctx context.Context, requirementID int64) (*RequirementDetail, error) {
	r, err := s.store.GetRequirement(ctx, requirementID)
	if err != nil {
		return nil, storeErr(err, "Requirement not found")
	}
	bids, err := s.store.ListBidsForRequirement(ctx, requirementID, false)
	if err != nil {
		return nil, err
	}
	return &RequirementDetail{Requirement: r, Bids: bids, TotalBids: len(bids)}, nil
}

func (s *Service) MyRequirements(ctx context.Context, id Identity) ([]models.Requirement, error) {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.ListOwnRequirements, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.store.ListVendorRequirements(ctx, actor.ID)
}

// loadOwnRequirement проверяет роль, существование заявки и владение именно в этом порядке
func (s *Service) loadOwnRequirement(ctx context.Context, id Identity, action policy.Action, requirementID int64) (policy.Actor, *models.Requirement, error) {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return actor, nil, err
	}
	if err := checkRole(actor, action); err != nil {
		return actor, nil, err
	}
	r, err := s.store.GetRequirement(ctx, requirementID)
	if err != nil {
		return actor, nil, storeErr(err, "Requirement not found")
	}
	if err := authorize(actor, action, policy.Resource{OwnerID: r.VendorID}); err != nil {
		return actor, nil, err
	}
	return actor, r, nil
}

// UpdateRequirement применяет частичное изменение, пока заявка открыта
func (s *Service) UpdateRequirement(ctx context.Context, id Identity, requirementID int64, patch RequirementPatch) (*models.Requirement, error) {
	_, r, err := s.loadOwnRequirement(ctx, id, policy.UpdateRequirement, requirementID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RequirementOpen {
		return nil, Conflict("Cannot update requirement that is not open")
	}

	in := RequirementInput{
		Title:            r.Title,
		Description:      r.Description,
		Materials:        r.Materials,
		Budget:           BudgetInput{Min: &r.Budget.Min, Max: &r.Budget.Max},
		DeliveryLocation: r.DeliveryLocation,
		DeliveryDate:     r.DeliveryDate,
		BiddingEndDate:   r.BiddingEndDate,
		Tags:             r.Tags,
	}
	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Materials != nil {
		in.Materials = *patch.Materials
	}
	if patch.Budget != nil {
		if patch.Budget.Min != nil {
			in.Budget.Min = patch.Budget.Min
		}
		if patch.Budget.Max != nil {
			in.Budget.Max = patch.Budget.Max
		}
	}
	if patch.DeliveryLocation != nil {
		in.DeliveryLocation = *patch.DeliveryLocation
	}
	if patch.DeliveryDate != nil {
		in.DeliveryDate = *patch.DeliveryDate
	}
	if patch.BiddingEndDate != nil {
		in.BiddingEndDate = *patch.BiddingEndDate
	}
	if patch.Tags != nil {
		in.Tags = *patch.Tags
	}
	if err := validateRequirementInput(&in); err != nil {
		return nil, err
	}

	r.Title = in.Title
	r.Description = in.Description
	r.Materials = in.Materials
	r.Budget = models.Budget{Min: *in.Budget.Min, Max: *in.Budget.Max}
	r.DeliveryLocation = in.DeliveryLocation
	r.DeliveryDate = in.DeliveryDate
	r.BiddingEndDate = in.BiddingEndDate
	r.Tags = in.Tags

	if err := s.store.UpdateRequirement(ctx, r); err != nil {
		if errors.Is(err, db.ErrStateChanged) {
			return nil, Conflict("Cannot update requirement that is not open")
		}
		return nil, err
	}
	return r, nil
}

// AwardBid выбирает победителя: заявка закрывается, выбранное предложение
// принимается, остальные отклоняются. Всё происходит в одной транзакции хранилища.
func (s *Service) AwardBid(ctx context.Context, id Identity, requirementID, bidID int64) (*models.Requirement, *models.Bid, error) {
	if bidID <= 0 {
		return nil, nil, Invalid(FieldError{Field: "bidId", Message: "Bid ID is required"})
	}
	_, r, err := s.loadOwnRequirement(ctx, id, policy.AwardBid, requirementID)
	if err != nil {
		return nil, nil, err
	}

	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, nil, storeErr(err, "Bid not found")
	}
	if bid.RequirementID != requirementID {
		return nil, nil, NotFound("Bid not found")
	}
	if !r.Status.AcceptsBids() {
		return nil, nil, Conflict("Requirement is not open for awarding")
	}
	if bid.Status != models.BidPending {
		return nil, nil, Conflict("Only pending bids can be awarded")
	}

	awarded, winner, err := s.store.AwardBid(ctx, requirementID, bidID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil, nil, NotFound("Bid not found")
	case errors.Is(err, db.ErrStateChanged):
		return nil, nil, Conflict("Requirement is not open for awarding")
	case err != nil:
		return nil, nil, err
	}

	s.metrics.Awards.Add(1)
	s.logger.Info().
		Int64("requirement_id", requirementID).
		Int64("bid_id", bidID).
		Int64("supplier_id", winner.SupplierID).
		Msg("bid awarded")

	s.publishAwarded(ctx, awarded, winner)
	return awarded, winner, nil
}

// publishAwarded не влияет на результат запроса: ошибка только логируется
func (s *Service) publishAwarded(ctx context.Context, r *models.Requirement, b *models.Bid) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.PublishBidAwarded(ctx, events.BidAwarded{
		EventID:          uuid.NewString(),
		RequirementID:    r.ID,
		RequirementTitle: r.Title,
		VendorID:         r.VendorID,
		BidID:            b.ID,
		SupplierID:       b.SupplierID,
		Amount:           b.Amount,
		AwardedAt:        s.now().UTC(),
	})
	if err != nil {
		s.metrics.PublishFailures.With("event", events.BidAwardedQueue).Add(1)
		s.logger.Error().Err(err).Int64("requirement_id", r.ID).Msg("failed to publish bid awarded event")
	}
}

// RequirementBids возвращает предложения по заявке вместе с отзывами о поставщиках
func (s *Service) RequirementBids(ctx context.Context, id Identity, requirementID int64) ([]models.Bid, error) {
	if _, _, err := s.loadOwnRequirement(ctx, id, policy.ViewRequirementBids, requirementID); err != nil {
		return nil, err
	}
	return s.store.ListBidsForRequirement(ctx, requirementID, true)
}
