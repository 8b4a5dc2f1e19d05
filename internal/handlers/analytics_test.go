package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vendorbid/internal/analytics"
	"vendorbid/internal/handlers/testutils"
	"vendorbid/internal/market"
	"vendorbid/models"
)

func TestAddSalesDataHandler(t *testing.T) {
	var got []models.Sale
	h, _ := newHandler(&MockService{
		AddSalesDataFunc: func(ctx context.Context, id market.Identity, entries []models.Sale) (*models.Analytics, error) {
			got = entries
			return &models.Analytics{VendorID: id.UserID, SalesData: entries}, nil
		},
	})

	req := testutils.WithIdentity(jsonRequest(http.MethodPost, "/api/analytics/sales-data",
		`{"salesData":[{"date":"2026-03-08","productName":"Samosa","quantity":100,"revenue":1000,"cost":600}]}`), vendor)
	status, body := doJSON(t, h.AddSalesDataHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"message":"Sales data added successfully"`)
	require.Len(t, got, 1)
	require.True(t, got[0].Date.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)))
	require.True(t, got[0].Revenue.Equal(decimal.NewFromInt(1000)))
}

func TestAddSalesDataHandlerDates(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		errors string
	}{
		{
			name:   "missing date passes to service",
			body:   `{"salesData":[{"productName":"Samosa","quantity":1}]}`,
			status: http.StatusOK,
		},
		{
			name:   "invalid date",
			body:   `{"salesData":[{"productName":"Samosa"},{"date":"yesterday","productName":"Vada pav"}]}`,
			status: http.StatusBadRequest,
			errors: `{"errors":[{"field":"salesData[1].date","message":"Invalid date"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(&MockService{})

			req := testutils.WithIdentity(jsonRequest(http.MethodPost, "/api/analytics/sales-data", tt.body), vendor)
			status, body := doJSON(t, h.AddSalesDataHandler, req)

			require.Equal(t, tt.status, status)
			if tt.errors != "" {
				require.JSONEq(t, tt.errors, body)
			}
		})
	}
}

func TestAddMaterialUsageHandler(t *testing.T) {
	var got []models.MaterialUse
	h, _ := newHandler(&MockService{
		AddMaterialUsageFunc: func(ctx context.Context, id market.Identity, entries []models.MaterialUse) (*models.Analytics, error) {
			got = entries
			return &models.Analytics{VendorID: id.UserID, MaterialUsage: entries}, nil
		},
	})

	req := testutils.WithIdentity(jsonRequest(http.MethodPost, "/api/analytics/material-usage",
		`{"materialUsage":[{"materialName":"Oil","quantity":10,"unit":"liters","cost":1500,"date":"2026-03-09T07:30:00Z"}]}`), vendor)
	status, body := doJSON(t, h.AddMaterialUsageHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"message":"Material usage data added successfully"`)
	require.Len(t, got, 1)
	require.Equal(t, "liters", got[0].Unit)
	require.True(t, got[0].Date.Equal(time.Date(2026, 3, 9, 7, 30, 0, 0, time.UTC)))
}

func TestDashboardHandler(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		h, _ := newHandler(&MockService{
			DashboardFunc: func(ctx context.Context, id market.Identity) (*market.DashboardView, error) {
				return &market.DashboardView{Dashboard: analytics.Dashboard{
					TopProducts:        []models.ProductSales{},
					MaterialEfficiency: []models.MaterialEfficiency{},
					Recommendations:    []models.Recommendation{},
				}}, nil
			},
		})

		req := testutils.WithIdentity(httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard", nil), vendor)
		status, body := doJSON(t, h.DashboardHandler, req)

		require.Equal(t, http.StatusOK, status)
		require.Contains(t, body, `"message":"No analytics data found"`)
		require.Contains(t, body, `"totalSales":0`)
		require.NotContains(t, body, `"analytics"`)
	})

	t.Run("with data", func(t *testing.T) {
		h, _ := newHandler(&MockService{
			DashboardFunc: func(ctx context.Context, id market.Identity) (*market.DashboardView, error) {
				return &market.DashboardView{
					Analytics: &models.Analytics{VendorID: id.UserID},
					Dashboard: analytics.Dashboard{TotalSales: 2, TotalRevenue: decimal.NewFromInt(1400)},
				}, nil
			},
		})

		req := testutils.WithIdentity(httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard", nil), vendor)
		status, body := doJSON(t, h.DashboardHandler, req)

		require.Equal(t, http.StatusOK, status)
		require.Contains(t, body, `"analytics":{"vendor":1`)
		require.Contains(t, body, `"totalRevenue":1400`)
		require.NotContains(t, body, "No analytics data found")
	})

	t.Run("forbidden", func(t *testing.T) {
		h, _ := newHandler(&MockService{
			DashboardFunc: func(ctx context.Context, id market.Identity) (*market.DashboardView, error) {
				return nil, market.Forbidden("Access denied")
			},
		})

		req := testutils.WithIdentity(httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard", nil), supplier)
		status, _ := doJSON(t, h.DashboardHandler, req)
		require.Equal(t, http.StatusForbidden, status)
	})
}

func TestGenerateRecommendationsHandler(t *testing.T) {
	h, _ := newHandler(&MockService{
		GenerateRecommendationsFunc: func(ctx context.Context, id market.Identity) ([]models.Recommendation, error) {
			return []models.Recommendation{{
				Type:     models.RecommendBuy,
				Material: "Samosa",
				Quantity: 20,
				Reason:   "High demand for Samosa",
				Priority: models.PriorityHigh,
			}}, nil
		},
	})

	req := testutils.WithIdentity(httptest.NewRequest(http.MethodPost, "/api/analytics/generate-recommendations", nil), vendor)
	status, body := doJSON(t, h.GenerateRecommendationsHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"message":"Recommendations generated successfully"`)
	require.Contains(t, body, `"reason":"High demand for Samosa"`)
}
