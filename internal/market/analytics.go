package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vendorbid/db"
	"vendorbid/internal/analytics"
	"vendorbid/internal/policy"
	"vendorbid/models"
)

type DashboardView struct {
	Analytics *models.Analytics   `json:"analytics,omitempty"`
	Dashboard analytics.Dashboard `json:"dashboard"`
}

func validateSales(entries []models.Sale) error {
	var errs fieldErrors
	if len(entries) == 0 {
		errs.add("salesData", "At least one sales entry is required")
	}
	for i := range entries {
		e := &entries[i]
		field := fmt.Sprintf("salesData[%d]", i)
		e.ProductName = strings.TrimSpace(e.ProductName)
		if e.Date.IsZero() {
			errs.add(field+".date", "Date is required")
		}
		if e.ProductName == "" {
			errs.add(field+".productName", "Product name is required")
		}
		if e.Quantity < 0 {
			errs.add(field+".quantity", "Quantity must not be negative")
		}
		if e.Revenue.IsNegative() {
			errs.add(field+".revenue", "Revenue must not be negative")
		}
		if e.Cost.IsNegative() {
			errs.add(field+".cost", "Cost must not be negative")
		}
	}
	return errs.err()
}

func validateUsage(entries []models.MaterialUse) error {
	var errs fieldErrors
	if len(entries) == 0 {
		errs.add("materialUsage", "At least one usage entry is required")
	}
	for i := range entries {
		e := &entries[i]
		field := fmt.Sprintf("materialUsage[%d]", i)
		e.MaterialName = strings.TrimSpace(e.MaterialName)
		e.Unit = strings.TrimSpace(e.Unit)
		if e.MaterialName == "" {
			errs.add(field+".materialName", "Material name is required")
		}
		if e.Quantity < 0 {
			errs.add(field+".quantity", "Quantity must not be negative")
		}
		if e.Unit == "" {
			errs.add(field+".unit", "Unit is required")
		}
		if e.Cost.IsNegative() {
			errs.add(field+".cost", "Cost must not be negative")
		}
		if e.Date.IsZero() {
			errs.add(field+".date", "Date is required")
		}
	}
	return errs.err()
}

func (s *Service) vendorActor(ctx context.Context, id Identity, action policy.Action) (policy.Actor, error) {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return actor, err
	}
	return actor, authorize(actor, action, policy.Resource{})
}

// AddSalesData дописывает продажи и пересчитывает показатели под блокировкой документа
func (s *Service) AddSalesData(ctx context.Context, id Identity, entries []models.Sale) (*models.Analytics, error) {
	if err := validateSales(entries); err != nil {
		return nil, err
	}
	actor, err := s.vendorActor(ctx, id, policy.RecordAnalytics)
	if err != nil {
		return nil, err
	}

	return s.store.UpdateAnalytics(ctx, actor.ID, func(a *models.Analytics) error {
		a.SalesData = append(a.SalesData, analytics.WithProfit(entries)...)
		a.Insights = analytics.Compute(a.SalesData, a.MaterialUsage, s.now())
		return nil
	})
}

// AddMaterialUsage дописывает расход материалов и обновляет показатели
func (s *Service) AddMaterialUsage(ctx context.Context, id Identity, entries []models.MaterialUse) (*models.Analytics, error) {
	if err := validateUsage(entries); err != nil {
		return nil, err
	}
	actor, err := s.vendorActor(ctx, id, policy.RecordAnalytics)
	if err != nil {
		return nil, err
	}

	return s.store.UpdateAnalytics(ctx, actor.ID, func(a *models.Analytics) error {
		a.MaterialUsage = append(a.MaterialUsage, entries...)
		a.Insights = analytics.Compute(a.SalesData, a.MaterialUsage, s.now())
		return nil
	})
}

// Dashboard возвращает пустую сводку, если продавец ещё не присылал данных
func (s *Service) Dashboard(ctx context.Context, id Identity) (*DashboardView, error) {
	actor, err := s.vendorActor(ctx, id, policy.ViewAnalytics)
	if err != nil {
		return nil, err
	}

	a, err := s.store.GetAnalytics(ctx, actor.ID)
	if errors.Is(err, db.ErrNotFound) {
		return &DashboardView{Dashboard: analytics.EmptyDashboard()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &DashboardView{Analytics: a, Dashboard: analytics.BuildDashboard(a)}, nil
}

var errNoSalesData = Invalid(FieldError{Field: "salesData", Message: "No sales data available for recommendations"})

// GenerateRecommendations пересобирает рекомендации по текущим данным
func (s *Service) GenerateRecommendations(ctx context.Context, id Identity) ([]models.Recommendation, error) {
	actor, err := s.vendorActor(ctx, id, policy.GenerateRecommendations)
	if err != nil {
		return nil, err
	}

	a, err := s.store.GetAnalytics(ctx, actor.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNoSalesData
	}
	if err != nil {
		return nil, err
	}
	if len(a.SalesData) == 0 {
		return nil, errNoSalesData
	}

	updated, err := s.store.UpdateAnalytics(ctx, actor.ID, func(a *models.Analytics) error {
		a.Insights = analytics.Compute(a.SalesData, a.MaterialUsage, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Insights.Recommendations, nil
}
