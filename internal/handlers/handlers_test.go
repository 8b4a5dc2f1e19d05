package handlers_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vendorbid/internal/handlers"
	"vendorbid/internal/handlers/testutils"
	"vendorbid/internal/market"
	"vendorbid/models"
)

var (
	vendor   = market.Identity{UserID: 1, Role: models.RoleVendor}
	supplier = market.Identity{UserID: 2, Role: models.RoleSupplier}
)

func newHandler(svc *MockService) (*handlers.Handler, *stubPhotos) {
	photos := &stubPhotos{}
	return handlers.NewHandler(svc, stubTokens{}, photos, nil, 1<<20), photos
}

func doJSON(t *testing.T, fn http.HandlerFunc, req *http.Request) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterHandler(t *testing.T) {
	var got market.RegisterInput
	svc := &MockService{
		RegisterFunc: func(ctx context.Context, in market.RegisterInput) (*models.User, error) {
			got = in
			return &models.User{ID: 5, Email: in.Email, Role: in.UserType, PasswordHash: "secret-hash"}, nil
		},
	}
	h, _ := newHandler(svc)

	req := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"a@b.com","password":"secret1","name":"Asha","userType":"supplier","address":{"locality":"Kothrud"}}`)
	status, body := doJSON(t, h.RegisterHandler, req)

	require.Equal(t, http.StatusCreated, status)
	require.Contains(t, body, `"token":"token-5-supplier"`)
	require.Contains(t, body, `"expiresAt":"2026-03-11T12:00:00Z"`)
	require.NotContains(t, body, "secret-hash")
	require.Equal(t, "Kothrud", got.Address.Locality)
	require.Equal(t, models.RoleSupplier, got.UserType)
}

func TestRegisterHandlerTokenFailure(t *testing.T) {
	h := handlers.NewHandler(&MockService{}, stubTokens{err: errors.New("boom")}, &stubPhotos{}, nil, 0)

	req := jsonRequest(http.MethodPost, "/api/auth/register", `{"email":"a@b.com"}`)
	status, body := doJSON(t, h.RegisterHandler, req)

	require.Equal(t, http.StatusInternalServerError, status)
	require.JSONEq(t, `{"message":"Server error"}`, body)
}

func TestLoginHandler(t *testing.T) {
	svc := &MockService{
		LoginFunc: func(ctx context.Context, email, password string) (*models.User, error) {
			if password != "secret1" {
				return nil, market.Unauthorized("Invalid credentials")
			}
			return &models.User{ID: 3, Email: email, Role: models.RoleVendor}, nil
		},
	}
	h, _ := newHandler(svc)

	status, body := doJSON(t, h.LoginHandler, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"secret1"}`))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "token-3-vendor")

	status, body = doJSON(t, h.LoginHandler, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"nope"}`))
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"message":"Invalid credentials"}`, body)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", market.Invalid(market.FieldError{Field: "name", Message: "Name is required"}), http.StatusBadRequest, `{"errors":[{"field":"name","message":"Name is required"}]}`},
		{"unauthorized", market.Unauthorized("Invalid credentials"), http.StatusUnauthorized, `{"message":"Invalid credentials"}`},
		{"forbidden", market.Forbidden("Access denied"), http.StatusForbidden, `{"message":"Access denied"}`},
		{"not found", market.NotFound("User not found"), http.StatusNotFound, `{"message":"User not found"}`},
		{"conflict", market.Conflict("User already exists"), http.StatusBadRequest, `{"message":"User already exists"}`},
		{"wrapped", errors.Join(errors.New("ctx"), market.NotFound("Bid not found")), http.StatusNotFound, `{"message":"Bid not found"}`},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, `{"message":"Server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockService{
				MeFunc: func(ctx context.Context, id market.Identity) (*models.User, error) {
					return nil, tt.err
				},
			}
			h, _ := newHandler(svc)

			req := testutils.WithIdentity(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), vendor)
			status, body := doJSON(t, h.MeHandler, req)

			require.Equal(t, tt.status, status)
			require.JSONEq(t, tt.body, body)
		})
	}
}

func TestHandlerWithoutIdentity(t *testing.T) {
	h, _ := newHandler(&MockService{})

	status, body := doJSON(t, h.MeHandler, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"message":"No token, authorization denied"}`, body)
}

func TestInvalidJSON(t *testing.T) {
	h, _ := newHandler(&MockService{})

	status, body := doJSON(t, h.LoginHandler, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":`))

	require.Equal(t, http.StatusBadRequest, status)
	require.JSONEq(t, `{"message":"Invalid JSON format"}`, body)
}

func TestProfileHandlers(t *testing.T) {
	var got market.ProfileInput
	svc := &MockService{
		UpdateSupplierProfileFunc: func(ctx context.Context, id market.Identity, in market.ProfileInput) (*models.User, error) {
			got = in
			return &models.User{ID: id.UserID, Name: *in.Name, Role: models.RoleSupplier}, nil
		},
	}
	h, _ := newHandler(svc)

	req := testutils.WithIdentity(jsonRequest(http.MethodPut, "/api/suppliers/profile", `{"name":"Fresh Farms"}`), supplier)
	status, body := doJSON(t, h.UpdateSupplierProfileHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"message":"Profile updated successfully"`)
	require.Contains(t, body, `"supplier":{`)
	require.Nil(t, got.Phone)
	require.Equal(t, "Fresh Farms", *got.Name)
}

func TestVerifySupplierHandler(t *testing.T) {
	var gotID int64
	svc := &MockService{
		VerifySupplierFunc: func(ctx context.Context, id market.Identity, supplierID int64) error {
			gotID = supplierID
			return nil
		},
	}
	h, _ := newHandler(svc)
	admin := market.Identity{UserID: 9, Role: models.RoleAdmin}

	req := httptest.NewRequest(http.MethodPost, "/api/requirements/suppliers/12/verify", nil)
	req = testutils.WithChiURLParams(testutils.WithIdentity(req, admin), map[string]string{"id": "12"})
	status, body := doJSON(t, h.VerifySupplierHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"message":"Supplier verified successfully"}`, body)
	require.EqualValues(t, 12, gotID)
}

func TestListUsersHandler(t *testing.T) {
	var gotType string
	svc := &MockService{
		ListUsersFunc: func(ctx context.Context, id market.Identity, userType string) ([]models.User, error) {
			gotType = userType
			return []models.User{{ID: 2, Role: models.RoleSupplier}}, nil
		},
	}
	h, _ := newHandler(svc)

	req := testutils.WithIdentity(httptest.NewRequest(http.MethodGet, "/api/requirements/users?userType=supplier", nil), vendor)
	status, body := doJSON(t, h.ListUsersHandler, req)

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "supplier", gotType)
	require.Contains(t, body, `"userType":"supplier"`)
}
