package handlers

import (
	"context"

	"vendorbid/internal/market"
	"vendorbid/models"
)

// MarketService это операции площадки, которые вызывают обработчики. *market.Service удовлетворяет ему.
type MarketService interface {
	Register(ctx context.Context, in market.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Me(ctx context.Context, id market.Identity) (*models.User, error)

	VendorProfile(ctx context.Context, id market.Identity) (*models.User, error)
	UpdateVendorProfile(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error)
	SupplierProfile(ctx context.Context, id market.Identity) (*models.User, error)
	UpdateSupplierProfile(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error)
	VerificationStatus(ctx context.Context, id market.Identity) (*market.VerificationStatus, error)
	VerifySupplier(ctx context.Context, id market.Identity, supplierID int64) error
	ListUsers(ctx context.Context, id market.Identity, userType string) ([]models.User, error)

	CreateRequirement(ctx context.Context, id market.Identity, in market.RequirementInput) (*models.Requirement, error)
	ListRequirements(ctx context.Context, q market.RequirementQuery) (*market.RequirementPage, error)
	GetRequirement(ctx context.Context, requirementID int64) (*market.RequirementDetail, error)
	MyRequirements(ctx context.Context, id market.Identity) ([]models.Requirement, error)
	UpdateRequirement(ctx context.Context, id market.Identity, requirementID int64, patch market.RequirementPatch) (*models.Requirement, error)
	AwardBid(ctx context.Context, id market.Identity, requirementID, bidID int64) (*models.Requirement, *models.Bid, error)
	RequirementBids(ctx context.Context, id market.Identity, requirementID int64) ([]models.Bid, error)
	ReviewSupplier(ctx context.Context, id market.Identity, supplierID int64, in market.ReviewInput) error

	SubmitBid(ctx context.Context, id market.Identity, in market.BidInput) (*models.Bid, error)
	UpdateBid(ctx context.Context, id market.Identity, bidID int64, patch market.BidPatch) (*models.Bid, error)
	WithdrawBid(ctx context.Context, id market.Identity, bidID int64) (*models.Bid, error)
	MyBids(ctx context.Context, id market.Identity) ([]models.Bid, error)
	BidsForRequirement(ctx context.Context, requirementID int64) ([]models.Bid, error)
	ReviewBid(ctx context.Context, id market.Identity, bidID int64, in market.ReviewInput) (*models.Bid, error)

	AddSalesData(ctx context.Context, id market.Identity, entries []models.Sale) (*models.Analytics, error)
	AddMaterialUsage(ctx context.Context, id market.Identity, entries []models.MaterialUse) (*models.Analytics, error)
	Dashboard(ctx context.Context, id market.Identity) (*market.DashboardView, error)
	GenerateRecommendations(ctx context.Context, id market.Identity) ([]models.Recommendation, error)
}

var _ MarketService = (*market.Service)(nil)
