package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vendorbid/internal/market"
	"vendorbid/models"
)

type saleRequest struct {
	Date        string          `json:"date"`
	ProductName string          `json:"productName"`
	Quantity    float64         `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
}

type salesDataRequest struct {
	SalesData []saleRequest `json:"salesData"`
}

type materialUseRequest struct {
	MaterialName string          `json:"materialName"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	Cost         decimal.Decimal `json:"cost"`
	Date         string          `json:"date"`
}

type materialUsageRequest struct {
	MaterialUsage []materialUseRequest `json:"materialUsage"`
}

// validateSalesRequest разбирает даты записей; значения проверяет сервис
func validateSalesRequest(req *salesDataRequest) ([]models.Sale, error) {
	var errs []market.FieldError
	out := make([]models.Sale, 0, len(req.SalesData))
	for i, e := range req.SalesData {
		out = append(out, models.Sale{
			Date:        optionalDate(&errs, fmt.Sprintf("salesData[%d].date", i), e.Date),
			ProductName: e.ProductName,
			Quantity:    e.Quantity,
			Revenue:     e.Revenue,
			Cost:        e.Cost,
		})
	}
	if len(errs) > 0 {
		return nil, market.Invalid(errs...)
	}
	return out, nil
}

func validateUsageRequest(req *materialUsageRequest) ([]models.MaterialUse, error) {
	var errs []market.FieldError
	out := make([]models.MaterialUse, 0, len(req.MaterialUsage))
	for i, e := range req.MaterialUsage {
		out = append(out, models.MaterialUse{
			MaterialName: e.MaterialName,
			Quantity:     e.Quantity,
			Unit:         e.Unit,
			Cost:         e.Cost,
			Date:         optionalDate(&errs, fmt.Sprintf("materialUsage[%d].date", i), e.Date),
		})
	}
	if len(errs) > 0 {
		return nil, market.Invalid(errs...)
	}
	return out, nil
}

// optionalDate оставляет нулевое время для пустой строки, сервис сообщит об отсутствии даты
func optionalDate(errs *[]market.FieldError, field, value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	return dateField(errs, field, value)
}

// AddSalesDataHandler обрабатывает POST /api/analytics/sales-data
func (h *Handler) AddSalesDataHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req salesDataRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entries, err := validateSalesRequest(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.Service.AddSalesData(r.Context(), id, entries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Sales data added successfully", "analytics": a})
}

// AddMaterialUsageHandler обрабатывает POST /api/analytics/material-usage
func (h *Handler) AddMaterialUsageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req materialUsageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entries, err := validateUsageRequest(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.Service.AddMaterialUsage(r.Context(), id, entries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Material usage data added successfully", "analytics": a})
}

// DashboardHandler обрабатывает GET /api/analytics/dashboard
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Dashboard(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if view.Analytics == nil {
		writeJSON(w, http.StatusOK, map[string]any{"message": "No analytics data found", "dashboard": view.Dashboard})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GenerateRecommendationsHandler обрабатывает POST /api/analytics/generate-recommendations
func (h *Handler) GenerateRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	recs, err := h.Service.GenerateRecommendations(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Recommendations generated successfully", "recommendations": recs})
}
