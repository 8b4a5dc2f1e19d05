package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"vendorbid/db"
	"vendorbid/internal/policy"
	"vendorbid/models"
)

const (
	minBidDescription = 10
	MaxBidPhotos      = 5
)

type BidInput struct {
	RequirementID int64               `json:"requirement"`
	Amount        decimal.Decimal     `json:"amount"`
	DeliveryTime  int                 `json:"deliveryTime"`
	Description   string              `json:"description"`
	Materials     models.BidMaterials `json:"materials"`
	Terms         models.Terms        `json:"terms"`
	Photos        []string            `json:"-"`
}

// BidPatch содержит только переданные поля
type BidPatch struct {
	Amount       *decimal.Decimal     `json:"amount"`
	DeliveryTime *int                 `json:"deliveryTime"`
	Description  *string              `json:"description"`
	Materials    *models.BidMaterials `json:"materials"`
	Terms        *models.Terms        `json:"terms"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func validateBidFields(errs *fieldErrors, amount decimal.Decimal, deliveryTime int, description string, materials models.BidMaterials) {
	if !amount.IsPositive() {
		errs.add("amount", "Amount must be greater than 0")
	}
	if deliveryTime < 1 {
		errs.add("deliveryTime", "Delivery time must be at least 1 day")
	}
	if utf8.RuneCountInString(description) < minBidDescription {
		errs.add("description", "Description must be at least 10 characters long")
	}
	if len(materials) == 0 {
		errs.add("materials", "At least one material is required")
	}
	for i := range materials {
		m := &materials[i]
		field := fmt.Sprintf("materials[%d]", i)
		if strings.TrimSpace(m.Name) == "" {
			errs.add(field+".name", "Material name is required")
		}
		if m.Quantity < 0 {
			errs.add(field+".quantity", "Quantity must not be negative")
		}
		if m.Price.IsNegative() {
			errs.add(field+".price", "Price must not be negative")
		}
		if m.Quality == "" {
			m.Quality = models.QualityStandard
		}
		if !models.ValidQuality(m.Quality) {
			errs.add(field+".quality", "Quality must be premium, standard or economy")
		}
	}
}

func validateBidInput(in *BidInput) error {
	var errs fieldErrors
	in.Description = strings.TrimSpace(in.Description)

	if in.RequirementID <= 0 {
		errs.add("requirement", "Requirement ID is required")
	}
	validateBidFields(&errs, in.Amount, in.DeliveryTime, in.Description, in.Materials)
	if len(in.Photos) > MaxBidPhotos {
		errs.add("photos", "At most 5 photos are allowed")
	}
	return errs.err()
}

func validateReview(in *ReviewInput) error {
	var errs fieldErrors
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Rating < 1 || in.Rating > 5 {
		errs.add("rating", "Rating must be between 1 and 5")
	}
	if in.Comment == "" {
		errs.add("comment", "Review text is required")
	}
	return errs.err()
}

// SubmitBid проверяет предусловия в порядке: роль, подтверждённость, заявка,
// её статус, срок приёма, повторное предложение.
func (s *Service) SubmitBid(ctx context.Context, id Identity, in BidInput) (*models.Bid, error) {
	if err := validateBidInput(&in); err != nil {
		return nil, err
	}
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.SubmitBid, policy.Resource{}); err != nil {
		return nil, err
	}

	r, err := s.store.GetRequirement(ctx, in.RequirementID)
	if err != nil {
		return nil, storeErr(err, "Requirement not found")
	}
	if !r.Status.AcceptsBids() {
		return nil, Conflict("This requirement is not open for bidding")
	}
	if r.BiddingClosed(s.now()) {
		return nil, Conflict("Bidding period has ended")
	}

	_, err = s.store.FindSupplierBid(ctx, r.ID, actor.ID)
	switch {
	case err == nil:
		return nil, Conflict("You have already placed a bid for this requirement")
	case !errors.Is(err, db.ErrNotFound):
		return nil, err
	}

	bid := &models.Bid{
		RequirementID: r.ID,
		SupplierID:    actor.ID,
		Amount:        in.Amount,
		DeliveryTime:  in.DeliveryTime,
		Description:   in.Description,
		Materials:     in.Materials,
		Terms:         in.Terms,
		Photos:        in.Photos,
	}
	err = s.store.CreateBid(ctx, bid)
	switch {
	case errors.Is(err, db.ErrDuplicateBid):
		return nil, Conflict("You have already placed a bid for this requirement")
	case errors.Is(err, db.ErrStateChanged):
		return nil, Conflict("This requirement is not open for bidding")
	case err != nil:
		return nil, err
	}

	s.metrics.BidsSubmitted.Add(1)
	s.logger.Info().Int64("bid_id", bid.ID).Int64("requirement_id", r.ID).Int64("supplier_id", actor.ID).Msg("bid submitted")
	return bid, nil
}

// loadOwnPendingBid проверяет роль, существование, владение, статус и срок приёма
func (s *Service) loadOwnPendingBid(ctx context.Context, id Identity, action policy.Action, bidID int64, verb string) (*models.Bid, error) {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRole(actor, action); err != nil {
		return nil, err
	}
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, storeErr(err, "Bid not found")
	}
	if err := authorize(actor, action, policy.Resource{OwnerID: bid.SupplierID}); err != nil {
		return nil, err
	}
	if bid.Status != models.BidPending {
		return nil, Conflict(fmt.Sprintf("Cannot %s bid that is not pending", verb))
	}

	r, err := s.store.GetRequirement(ctx, bid.RequirementID)
	if err != nil {
		return nil, storeErr(err, "Requirement not found")
	}
	if r.BiddingClosed(s.now()) {
		return nil, Conflict("Bidding period has ended")
	}
	return bid, nil
}

func (s *Service) UpdateBid(ctx context.Context, id Identity, bidID int64, patch BidPatch) (*models.Bid, error) {
	bid, err := s.loadOwnPendingBid(ctx, id, policy.UpdateBid, bidID, "update")
	if err != nil {
		return nil, err
	}

	if patch.Amount != nil {
		bid.Amount = *patch.Amount
	}
	if patch.DeliveryTime != nil {
		bid.DeliveryTime = *patch.DeliveryTime
	}
	if patch.Description != nil {
		bid.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Materials != nil {
		bid.Materials = *patch.Materials
	}
	if patch.Terms != nil {
		bid.Terms = *patch.Terms
	}

	var errs fieldErrors
	validateBidFields(&errs, bid.Amount, bid.DeliveryTime, bid.Description, bid.Materials)
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBid(ctx, bid); err != nil {
		if errors.Is(err, db.ErrStateChanged) {
			return nil, Conflict("Cannot update bid that is not pending")
		}
		return nil, err
	}
	return bid, nil
}

// WithdrawBid отзывает предложение; счётчик заявки уменьшается в той же транзакции
func (s *Service) WithdrawBid(ctx context.Context, id Identity, bidID int64) (*models.Bid, error) {
	if _, err := s.loadOwnPendingBid(ctx, id, policy.WithdrawBid, bidID, "withdraw"); err != nil {
		return nil, err
	}

	bid, err := s.store.WithdrawBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, db.ErrStateChanged) {
			return nil, Conflict("Cannot withdraw bid that is not pending")
		}
		return nil, err
	}

	s.metrics.BidsWithdrawn.Add(1)
	s.logger.Info().Int64("bid_id", bid.ID).Int64("requirement_id", bid.RequirementID).Msg("bid withdrawn")
	return bid, nil
}

func (s *Service) MyBids(ctx context.Context, id Identity) ([]models.Bid, error) {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.ListOwnBids, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.store.ListSupplierBids(ctx, actor.ID)
}

// BidsForRequirement публичен и не раскрывает отзывы о поставщиках
func (s *Service) BidsForRequirement(ctx context.Context, requirementID int64) ([]models.Bid, error) {
	return s.store.ListBidsForRequirement(ctx, requirementID, false)
}

// ReviewBid доступен только продавцу, создавшему заявку
func (s *Service) ReviewBid(ctx context.Context, id Identity, bidID int64, in ReviewInput) (*models.Bid, error) {
	if err := validateReview(&in); err != nil {
		return nil, err
	}
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRole(actor, policy.ReviewBid); err != nil {
		return nil, err
	}

	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, storeErr(err, "Bid not found")
	}
	r, err := s.store.GetRequirement(ctx, bid.RequirementID)
	if err != nil {
		return nil, storeErr(err, "Requirement not found")
	}
	if err := authorize(actor, policy.ReviewBid, policy.Resource{OwnerID: r.VendorID}); err != nil {
		return nil, err
	}

	updated, err := s.store.AddBidReview(ctx, bidID, s.review(actor.ID, in))
	return updated, storeErr(err, "Bid not found")
}

// ReviewSupplier добавляет отзыв в профиль поставщика
func (s *Service) ReviewSupplier(ctx context.Context, id Identity, supplierID int64, in ReviewInput) error {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, policy.ReviewSupplier, policy.Resource{}); err != nil {
		return err
	}
	if err := validateReview(&in); err != nil {
		return err
	}

	target, err := s.store.GetUser(ctx, supplierID)
	if err != nil {
		return storeErr(err, "Supplier not found")
	}
	if target.Role != models.RoleSupplier {
		return NotFound("Supplier not found")
	}
	return storeErr(s.store.AddUserReview(ctx, supplierID, s.review(actor.ID, in)), "Supplier not found")
}

func (s *Service) review(reviewerID int64, in ReviewInput) models.Review {
	return models.Review{
		ReviewerID: reviewerID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		CreatedAt:  s.now().UTC(),
	}
}
