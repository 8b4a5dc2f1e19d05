package handlers_test

import (
	"context"
	"fmt"
	"io"
	"time"

	"vendorbid/internal/auth"
	"vendorbid/internal/market"
	"vendorbid/models"
)

// MockService реализует handlers.MarketService; незаданные функции возвращают нулевые значения
type MockService struct {
	RegisterFunc              func(ctx context.Context, in market.RegisterInput) (*models.User, error)
	LoginFunc                 func(ctx context.Context, email, password string) (*models.User, error)
	MeFunc                    func(ctx context.Context, id market.Identity) (*models.User, error)
	VendorProfileFunc         func(ctx context.Context, id market.Identity) (*models.User, error)
	UpdateVendorProfileFunc   func(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error)
	SupplierProfileFunc       func(ctx context.Context, id market.Identity) (*models.User, error)
	UpdateSupplierProfileFunc func(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error)
	VerificationStatusFunc    func(ctx context.Context, id market.Identity) (*market.VerificationStatus, error)
	VerifySupplierFunc        func(ctx context.Context, id market.Identity, supplierID int64) error
	ListUsersFunc             func(ctx context.Context, id market.Identity, userType string) ([]models.User, error)

	CreateRequirementFunc func(ctx context.Context, id market.Identity, in market.RequirementInput) (*models.Requirement, error)
	ListRequirementsFunc  func(ctx context.Context, q market.RequirementQuery) (*market.RequirementPage, error)
	GetRequirementFunc    func(ctx context.Context, requirementID int64) (*market.RequirementDetail, error)
	MyRequirementsFunc    func(ctx context.Context, id market.Identity) ([]models.Requirement, error)
	UpdateRequirementFunc func(ctx context.Context, id market.Identity, requirementID int64, patch market.RequirementPatch) (*models.Requirement, error)
	AwardBidFunc          func(ctx context.Context, id market.Identity, requirementID, bidID int64) (*models.Requirement, *models.Bid, error)
	RequirementBidsFunc   func(ctx context.Context, id market.Identity, requirementID int64) ([]models.Bid, error)
	ReviewSupplierFunc    func(ctx context.Context, id market.Identity, supplierID int64, in market.ReviewInput) error

	SubmitBidFunc          func(ctx context.Context, id market.Identity, in market.BidInput) (*models.Bid, error)
	UpdateBidFunc          func(ctx context.Context, id market.Identity, bidID int64, patch market.BidPatch) (*models.Bid, error)
	WithdrawBidFunc        func(ctx context.Context, id market.Identity, bidID int64) (*models.Bid, error)
	MyBidsFunc             func(ctx context.Context, id market.Identity) ([]models.Bid, error)
	BidsForRequirementFunc func(ctx context.Context, requirementID int64) ([]models.Bid, error)
	ReviewBidFunc          func(ctx context.Context, id market.Identity, bidID int64, in market.ReviewInput) (*models.Bid, error)

	AddSalesDataFunc            func(ctx context.Context, id market.Identity, entries []models.Sale) (*models.Analytics, error)
	AddMaterialUsageFunc        func(ctx context.Context, id market.Identity, entries []models.MaterialUse) (*models.Analytics, error)
	DashboardFunc               func(ctx context.Context, id market.Identity) (*market.DashboardView, error)
	GenerateRecommendationsFunc func(ctx context.Context, id market.Identity) ([]models.Recommendation, error)
}

func (m *MockService) Register(ctx context.Context, in market.RegisterInput) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return &models.User{ID: 1, Email: in.Email, Name: in.Name, Role: in.UserType}, nil
}

func (m *MockService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return &models.User{ID: 1, Email: email, Role: models.RoleVendor}, nil
}

func (m *MockService) Me(ctx context.Context, id market.Identity) (*models.User, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, id)
	}
	return &models.User{ID: id.UserID, Role: id.Role}, nil
}

func (m *MockService) VendorProfile(ctx context.Context, id market.Identity) (*models.User, error) {
	if m.VendorProfileFunc != nil {
		return m.VendorProfileFunc(ctx, id)
	}
	return &models.User{ID: id.UserID, Role: models.RoleVendor}, nil
}

func (m *MockService) UpdateVendorProfile(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error) {
	if m.UpdateVendorProfileFunc != nil {
		return m.UpdateVendorProfileFunc(ctx, id, in)
	}
	return &models.User{ID: id.UserID, Role: models.RoleVendor}, nil
}

func (m *MockService) SupplierProfile(ctx context.Context, id market.Identity) (*models.User, error) {
	if m.SupplierProfileFunc != nil {
		return m.SupplierProfileFunc(ctx, id)
	}
	return &models.User{ID: id.UserID, Role: models.RoleSupplier}, nil
}

func (m *MockService) UpdateSupplierProfile(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error) {
	if m.UpdateSupplierProfileFunc != nil {
		return m.UpdateSupplierProfileFunc(ctx, id, in)
	}
	return &models.User{ID: id.UserID, Role: models.RoleSupplier}, nil
}

func (m *MockService) VerificationStatus(ctx context.Context, id market.Identity) (*market.VerificationStatus, error) {
	if m.VerificationStatusFunc != nil {
		return m.VerificationStatusFunc(ctx, id)
	}
	return &market.VerificationStatus{}, nil
}

func (m *MockService) VerifySupplier(ctx context.Context, id market.Identity, supplierID int64) error {
	if m.VerifySupplierFunc != nil {
		return m.VerifySupplierFunc(ctx, id, supplierID)
	}
	return nil
}

func (m *MockService) ListUsers(ctx context.Context, id market.Identity, userType string) ([]models.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, id, userType)
	}
	return []models.User{}, nil
}

func (m *MockService) CreateRequirement(ctx context.Context, id market.Identity, in market.RequirementInput) (*models.Requirement, error) {
	if m.CreateRequirementFunc != nil {
		return m.CreateRequirementFunc(ctx, id, in)
	}
	return &models.Requirement{ID: 1, VendorID: id.UserID, Title: in.Title}, nil
}

func (m *MockService) ListRequirements(ctx context.Context, q market.RequirementQuery) (*market.RequirementPage, error) {
	if m.ListRequirementsFunc != nil {
		return m.ListRequirementsFunc(ctx, q)
	}
	return &market.RequirementPage{Requirements: []models.Requirement{}, CurrentPage: 1}, nil
}

func (m *MockService) GetRequirement(ctx context.Context, requirementID int64) (*market.RequirementDetail, error) {
	if m.GetRequirementFunc != nil {
		return m.GetRequirementFunc(ctx, requirementID)
	}
	return &market.RequirementDetail{Requirement: &models.Requirement{ID: requirementID}, Bids: []models.Bid{}}, nil
}

func (m *MockService) MyRequirements(ctx context.Context, id market.Identity) ([]models.Requirement, error) {
	if m.MyRequirementsFunc != nil {
		return m.MyRequirementsFunc(ctx, id)
	}
	return []models.Requirement{}, nil
}

func (m *MockService) UpdateRequirement(ctx context.Context, id market.Identity, requirementID int64, patch market.RequirementPatch) (*models.Requirement, error) {
	if m.UpdateRequirementFunc != nil {
		return m.UpdateRequirementFunc(ctx, id, requirementID, patch)
	}
	return &models.Requirement{ID: requirementID}, nil
}

func (m *MockService) AwardBid(ctx context.Context, id market.Identity, requirementID, bidID int64) (*models.Requirement, *models.Bid, error) {
	if m.AwardBidFunc != nil {
		return m.AwardBidFunc(ctx, id, requirementID, bidID)
	}
	return &models.Requirement{ID: requirementID}, &models.Bid{ID: bidID}, nil
}

func (m *MockService) RequirementBids(ctx context.Context, id market.Identity, requirementID int64) ([]models.Bid, error) {
	if m.RequirementBidsFunc != nil {
		return m.RequirementBidsFunc(ctx, id, requirementID)
	}
	return []models.Bid{}, nil
}

func (m *MockService) ReviewSupplier(ctx context.Context, id market.Identity, supplierID int64, in market.ReviewInput) error {
	if m.ReviewSupplierFunc != nil {
		return m.ReviewSupplierFunc(ctx, id, supplierID, in)
	}
	return nil
}

func (m *MockService) SubmitBid(ctx context.Context, id market.Identity, in market.BidInput) (*models.Bid, error) {
	if m.SubmitBidFunc != nil {
		return m.SubmitBidFunc(ctx, id, in)
	}
	return &models.Bid{ID: 1, RequirementID: in.RequirementID, SupplierID: id.UserID}, nil
}

func (m *MockService) UpdateBid(ctx context.Context, id market.Identity, bidID int64, patch market.BidPatch) (*models.Bid, error) {
	if m.UpdateBidFunc != nil {
		return m.UpdateBidFunc(ctx, id, bidID, patch)
	}
	return &models.Bid{ID: bidID}, nil
}

func (m *MockService) WithdrawBid(ctx context.Context, id market.Identity, bidID int64) (*models.Bid, error) {
	if m.WithdrawBidFunc != nil {
		return m.WithdrawBidFunc(ctx, id, bidID)
	}
	return &models.Bid{ID: bidID, Status: models.BidWithdrawn}, nil
}

func (m *MockService) MyBids(ctx context.Context, id market.Identity) ([]models.Bid, error) {
	if m.MyBidsFunc != nil {
		return m.MyBidsFunc(ctx, id)
	}
	return []models.Bid{}, nil
}

func (m *MockService) BidsForRequirement(ctx context.Context, requirementID int64) ([]models.Bid, error) {
	if m.BidsForRequirementFunc != nil {
		return m.BidsForRequirementFunc(ctx, requirementID)
	}
	return []models.Bid{}, nil
}

func (m *MockService) ReviewBid(ctx context.Context, id market.Identity, bidID int64, in market.ReviewInput) (*models.Bid, error) {
	if m.ReviewBidFunc != nil {
		return m.ReviewBidFunc(ctx, id, bidID, in)
	}
	return &models.Bid{ID: bidID}, nil
}

func (m *MockService) AddSalesData(ctx context.Context, id market.Identity, entries []models.Sale) (*models.Analytics, error) {
	if m.AddSalesDataFunc != nil {
		return m.AddSalesDataFunc(ctx, id, entries)
	}
	return &models.Analytics{VendorID: id.UserID, SalesData: entries}, nil
}

func (m *MockService) AddMaterialUsage(ctx context.Context, id market.Identity, entries []models.MaterialUse) (*models.Analytics, error) {
	if m.AddMaterialUsageFunc != nil {
		return m.AddMaterialUsageFunc(ctx, id, entries)
	}
	return &models.Analytics{VendorID: id.UserID, MaterialUsage: entries}, nil
}

func (m *MockService) Dashboard(ctx context.Context, id market.Identity) (*market.DashboardView, error) {
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx, id)
	}
	return &market.DashboardView{}, nil
}

func (m *MockService) GenerateRecommendations(ctx context.Context, id market.Identity) ([]models.Recommendation, error) {
	if m.GenerateRecommendationsFunc != nil {
		return m.GenerateRecommendationsFunc(ctx, id)
	}
	return []models.Recommendation{}, nil
}

type stubTokens struct {
	err error
}

func (s stubTokens) Issue(userID int64, role models.Role) (auth.AccessToken, error) {
	if s.err != nil {
		return auth.AccessToken{}, s.err
	}
	return auth.AccessToken{
		Token:     fmt.Sprintf("token-%d-%s", userID, role),
		ExpiresAt: time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
	}, nil
}

// stubPhotos запоминает имена и содержимое сохранённых файлов и удалённые пути
type stubPhotos struct {
	names    []string
	contents []string
	removed  []string
	err      error
}

func (s *stubPhotos) Remove(path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func (s *stubPhotos) Save(name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.names = append(s.names, name)
	s.contents = append(s.contents, string(b))
	return "/uploads/" + name, nil
}
