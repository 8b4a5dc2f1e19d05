package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vendorbid/internal/market"
	"vendorbid/models"
)

type PaginationParams struct {
	Page  int
	Limit int
}

// parsePaginationParams парсит page и limit из query; границы проверяет сервис
func parsePaginationParams(r *http.Request) PaginationParams {
	var params PaginationParams
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		params.Page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		params.Limit = l
	}
	return params
}

type requirementRequest struct {
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Materials        models.RequiredMaterials `json:"materials"`
	Budget           market.BudgetInput       `json:"budget"`
	DeliveryLocation models.Address           `json:"deliveryLocation"`
	DeliveryDate     string                   `json:"deliveryDate"`
	BiddingEndDate   string                   `json:"biddingEndDate"`
	Tags             []string                 `json:"tags"`
}

type requirementPatchRequest struct {
	Title            *string                   `json:"title"`
	Description      *string                   `json:"description"`
	Materials        *models.RequiredMaterials `json:"materials"`
	Budget           *market.BudgetInput       `json:"budget"`
	DeliveryLocation *models.Address           `json:"deliveryLocation"`
	DeliveryDate     *string                   `json:"deliveryDate"`
	BiddingEndDate   *string                   `json:"biddingEndDate"`
	Tags             *[]string                 `json:"tags"`
}

type awardRequest struct {
	BidID int64 `json:"bidId"`
}

// validateRequirementRequest разбирает даты; остальные поля проверяет сервис
func validateRequirementRequest(req *requirementRequest) (market.RequirementInput, error) {
	var errs []market.FieldError
	in := market.RequirementInput{
		Title:            req.Title,
		Description:      req.Description,
		Materials:        req.Materials,
		Budget:           req.Budget,
		DeliveryLocation: req.DeliveryLocation,
		DeliveryDate:     dateField(&errs, "deliveryDate", req.DeliveryDate),
		BiddingEndDate:   dateField(&errs, "biddingEndDate", req.BiddingEndDate),
		Tags:             req.Tags,
	}
	if len(errs) > 0 {
		return in, market.Invalid(errs...)
	}
	return in, nil
}

func validateRequirementPatch(req *requirementPatchRequest) (market.RequirementPatch, error) {
	var errs []market.FieldError
	patch := market.RequirementPatch{
		Title:            req.Title,
		Description:      req.Description,
		Materials:        req.Materials,
		Budget:           req.Budget,
		DeliveryLocation: req.DeliveryLocation,
		Tags:             req.Tags,
	}
	if req.DeliveryDate != nil {
		t := dateField(&errs, "deliveryDate", *req.DeliveryDate)
		patch.DeliveryDate = &t
	}
	if req.BiddingEndDate != nil {
		t := dateField(&errs, "biddingEndDate", *req.BiddingEndDate)
		patch.BiddingEndDate = &t
	}
	if len(errs) > 0 {
		return patch, market.Invalid(errs...)
	}
	return patch, nil
}

// CreateRequirementHandler обрабатывает POST /api/requirements
func (h *Handler) CreateRequirementHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req requirementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := validateRequirementRequest(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	requirement, err := h.Service.CreateRequirement(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Requirement created successfully",
		"requirement": requirement,
	})
}

// parseBudget возвращает nil для пустого параметра
func parseBudget(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, market.Invalid(market.FieldError{Field: name, Message: "Must be a number"})
	}
	return &d, nil
}

// GetRequirementsHandler возвращает страницу заявок с фильтрами
func (h *Handler) GetRequirementsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)
	q := r.URL.Query()

	minBudget, err := parseBudget(r, "minBudget")
	if err != nil {
		writeError(w, r, err)
		return
	}
	maxBudget, err := parseBudget(r, "maxBudget")
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.Service.ListRequirements(r.Context(), market.RequirementQuery{
		Status:    q.Get("status"),
		Locality:  q.Get("locality"),
		Material:  q.Get("material"),
		MinBudget: minBudget,
		MaxBudget: maxBudget,
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetRequirementHandler возвращает заявку вместе с предложениями
func (h *Handler) GetRequirementHandler(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.Service.GetRequirement(r.Context(), requirementID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateRequirementHandler обрабатывает PUT /api/requirements/{id}
func (h *Handler) UpdateRequirementHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	requirementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req requirementPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, err := validateRequirementPatch(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	requirement, err := h.Service.UpdateRequirement(r.Context(), id, requirementID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Requirement updated successfully",
		"requirement": requirement,
	})
}

// AwardBidHandler обрабатывает POST /api/requirements/{id}/award
func (h *Handler) AwardBidHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	requirementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req awardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	requirement, bid, err := h.Service.AwardBid(r.Context(), id, requirementID, req.BidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Bid awarded successfully",
		"requirement": requirement,
		"awardedBid":  bid,
	})
}

// GetRequirementBidsHandler отдаёт владельцу заявки предложения с отзывами о поставщиках
func (h *Handler) GetRequirementBidsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	requirementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bids, err := h.Service.RequirementBids(r.Context(), id, requirementID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": bids})
}

// GetMyRequirementsHandler возвращает заявки текущего продавца
func (h *Handler) GetMyRequirementsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	requirements, err := h.Service.MyRequirements(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requirements)
}

// ReviewSupplierHandler обрабатывает POST /api/requirements/supplier/{id}/review
func (h *Handler) ReviewSupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	supplierID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Service.ReviewSupplier(r.Context(), id, supplierID, req.input()); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Review added successfully")
}
