package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"

	"vendorbid/internal/market"
)

// reviewRequest принимает текст отзыва и в поле text, и в поле comment
type reviewRequest struct {
	Rating  int    `json:"rating"`
	Text    string `json:"text"`
	Comment string `json:"comment"`
}

func (req reviewRequest) input() market.ReviewInput {
	comment := req.Comment
	if strings.TrimSpace(comment) == "" {
		comment = req.Text
	}
	return market.ReviewInput{Rating: req.Rating, Comment: comment}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseBidForm разбирает multipart-форму: простые поля строками,
// materials и terms как JSON-строки, файлы в поле photos
func (h *Handler) parseBidForm(w http.ResponseWriter, r *http.Request) (market.BidInput, error) {
	var in market.BidInput
	limit := h.MaxUpload
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, errBodyTooLarge
		}
		return in, market.Invalid(market.FieldError{Field: "body", Message: "Invalid multipart form"})
	}
	defer r.MultipartForm.RemoveAll()

	var errs []market.FieldError
	form := r.MultipartForm.Value
	get := func(key string) string {
		if v := form[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	if v := get("requirement"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, market.FieldError{Field: "requirement", Message: "Invalid requirement ID"})
		}
		in.RequirementID = id
	}
	if v := get("amount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, market.FieldError{Field: "amount", Message: "Amount must be a number"})
		}
		in.Amount = amount
	}
	if v := get("deliveryTime"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, market.FieldError{Field: "deliveryTime", Message: "Delivery time must be a number"})
		}
		in.DeliveryTime = days
	}
	in.Description = get("description")
	if v := get("materials"); v != "" {
		if err := json.Unmarshal([]byte(v), &in.Materials); err != nil {
			errs = append(errs, market.FieldError{Field: "materials", Message: "Materials must be a JSON array"})
		}
	}
	if v := get("terms"); v != "" {
		if err := json.Unmarshal([]byte(v), &in.Terms); err != nil {
			errs = append(errs, market.FieldError{Field: "terms", Message: "Terms must be a JSON object"})
		}
	}

	files := r.MultipartForm.File["photos"]
	if len(files) > market.MaxBidPhotos {
		errs = append(errs, market.FieldError{Field: "photos", Message: fmt.Sprintf("At most %d photos are allowed", market.MaxBidPhotos)})
	}
	if len(errs) > 0 {
		return in, market.Invalid(errs...)
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.discardPhotos(r, in.Photos)
			return in, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		path, err := h.Photos.Save(fh.Filename, f)
		f.Close()
		if err != nil {
			h.discardPhotos(r, in.Photos)
			return in, fmt.Errorf("save upload %s: %w", fh.Filename, err)
		}
		in.Photos = append(in.Photos, path)
	}
	return in, nil
}

// discardPhotos удаляет файлы, сохранённые для отклонённого предложения
func (h *Handler) discardPhotos(r *http.Request, paths []string) {
	for _, path := range paths {
		if err := h.Photos.Remove(path); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("photo", path).Msg("failed to remove upload")
		}
	}
}

const defaultMaxUpload = 10 << 20

var errBodyTooLarge = errors.New("request body too large")

// CreateBidHandler обрабатывает POST /api/bids: multipart с фотографиями или JSON
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var in market.BidInput
	if isMultipart(r) {
		var err error
		in, err = h.parseBidForm(w, r)
		if errors.Is(err, errBodyTooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else if !decodeJSON(w, r, &in) {
		return
	}

	bid, err := h.Service.SubmitBid(r.Context(), id, in)
	if err != nil {
		h.discardPhotos(r, in.Photos)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Bid placed successfully", "bid": bid})
}

// GetMyBidsHandler возвращает предложения текущего поставщика
func (h *Handler) GetMyBidsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	bids, err := h.Service.MyBids(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// UpdateBidHandler обрабатывает PUT /api/bids/{id}
func (h *Handler) UpdateBidHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch market.BidPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	bid, err := h.Service.UpdateBid(r.Context(), id, bidID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Bid updated successfully", "bid": bid})
}

// WithdrawBidHandler обрабатывает DELETE /api/bids/{id}
func (h *Handler) WithdrawBidHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	bid, err := h.Service.WithdrawBid(r.Context(), id, bidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Bid withdrawn successfully", "bid": bid})
}

// GetBidsForRequirementHandler возвращает предложения по заявке по возрастанию цены
func (h *Handler) GetBidsForRequirementHandler(w http.ResponseWriter, r *http.Request) {
	requirementID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bids, err := h.Service.BidsForRequirement(r.Context(), requirementID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// CreateBidReviewHandler обрабатывает POST /api/bids/{id}/reviews
func (h *Handler) CreateBidReviewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bid, err := h.Service.ReviewBid(r.Context(), id, bidID, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Review added successfully", "bid": bid})
}
