package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"vendorbid/internal/auth"
	"vendorbid/internal/market"
	"vendorbid/internal/middleware"
	"vendorbid/models"
)

// Ограничение размера JSON-тела, чтобы избежать DoS
const maxJSONBody = 1 << 20

type TokenIssuer interface {
	Issue(userID int64, role models.Role) (auth.AccessToken, error)
}

// PhotoSaver сохраняет загруженный файл и возвращает его публичный путь.
// Remove принимает этот же путь.
type PhotoSaver interface {
	Save(name string, r io.Reader) (string, error)
	Remove(path string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler оборачивает сервис площадки для HTTP
type Handler struct {
	Service   MarketService
	Tokens    TokenIssuer
	Photos    PhotoSaver
	DB        Pinger
	MaxUpload int64
}

// NewHandler создает новый Handler
func NewHandler(service MarketService, tokens TokenIssuer, photos PhotoSaver, db Pinger, maxUpload int64) *Handler {
	return &Handler{Service: service, Tokens: tokens, Photos: photos, DB: db, MaxUpload: maxUpload}
}

// HealthHandler отвечает "ok", если база доступна
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError переводит ошибку домена в HTTP-ответ; остальные ошибки логируются и отдаются как 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *market.Error
	if !errors.As(err, &e) {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	switch e.Kind {
	case market.KindValidation:
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": e.Fields})
	case market.KindUnauthorized:
		writeMessage(w, http.StatusUnauthorized, e.Message)
	case market.KindForbidden:
		writeMessage(w, http.StatusForbidden, e.Message)
	case market.KindNotFound:
		writeMessage(w, http.StatusNotFound, e.Message)
	case market.KindConflict:
		writeMessage(w, http.StatusBadRequest, e.Message)
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

// decodeJSON читает тело запроса в v. Ответ при ошибке уже записан.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}

// identity достаёт пользователя, положенного middleware.RequireAuth
func identity(w http.ResponseWriter, r *http.Request) (market.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
	}
	return id, ok
}

// pathID разбирает числовой параметр пути
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, market.Invalid(market.FieldError{Field: name, Message: "Invalid id"}))
		return 0, false
	}
	return id, true
}

const dateOnly = "2006-01-02"

// parseDate принимает RFC 3339 или дату без времени
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnly, s)
}

// dateField разбирает обязательное поле даты и копит ошибку в errs
func dateField(errs *[]market.FieldError, field, value string) time.Time {
	if strings.TrimSpace(value) == "" {
		*errs = append(*errs, market.FieldError{Field: field, Message: "Date is required"})
		return time.Time{}
	}
	t, err := parseDate(value)
	if err != nil {
		*errs = append(*errs, market.FieldError{Field: field, Message: "Invalid date"})
	}
	return t
}
