package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"vendorbid/db"
	"vendorbid/db/migrations"
	"vendorbid/models"
)

// newStorage поднимает PostgreSQL в контейнере и применяет миграции
func newStorage(t *testing.T) *db.Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, skipped with -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "vendorbid",
				"POSTGRES_PASSWORD": "vendorbid",
				"POSTGRES_DB":       "vendorbid",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://vendorbid:vendorbid@%s:%s/vendorbid?sslmode=disable", host, port.Port())
	conn, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, migrations.Run(conn.DB))
	version, err := migrations.Version(conn.DB)
	require.NoError(t, err)
	require.Positive(t, version)

	return db.NewStorage(conn)
}

func createUser(t *testing.T, s *db.Storage, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Name:         email,
		Address:      models.Address{Locality: "Kothrud"},
		Verified:     role == models.RoleSupplier,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createRequirement(t *testing.T, s *db.Storage, vendorID int64, title string, min, max int64) *models.Requirement {
	t.Helper()
	r := &models.Requirement{
		VendorID:         vendorID,
		Title:            title,
		Materials:        models.RequiredMaterials{{Name: "Red Onion", Quantity: 50, Unit: "kg"}},
		Budget:           models.Budget{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)},
		DeliveryLocation: models.Address{Address: "FC Road", Locality: "Kothrud"},
		DeliveryDate:     time.Now().Add(10 * 24 * time.Hour).UTC(),
		BiddingEndDate:   time.Now().Add(7 * 24 * time.Hour).UTC(),
		Tags:             models.Tags{"vegetables"},
	}
	require.NoError(t, s.CreateRequirement(context.Background(), r))
	return r
}

func newBid(requirementID, supplierID int64, amount int64) *models.Bid {
	return &models.Bid{
		RequirementID: requirementID,
		SupplierID:    supplierID,
		Amount:        decimal.NewFromInt(amount),
		DeliveryTime:  2,
		Description:   "fresh stock",
		Materials:     models.BidMaterials{{Name: "Red Onion", Quantity: 50, Unit: "kg", Price: decimal.NewFromInt(30), Quality: models.QualityStandard}},
		Photos:        models.Photos{},
	}
}

func createBid(t *testing.T, s *db.Storage, requirementID, supplierID int64, amount int64) *models.Bid {
	t.Helper()
	b := newBid(requirementID, supplierID, amount)
	require.NoError(t, s.CreateBid(context.Background(), b))
	return b
}

func TestStorage(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	vendor := createUser(t, s, "vendor@example.com", models.RoleVendor)
	sup1 := createUser(t, s, "sup1@example.com", models.RoleSupplier)
	sup2 := createUser(t, s, "sup2@example.com", models.RoleSupplier)
	sup3 := createUser(t, s, "sup3@example.com", models.RoleSupplier)

	t.Run("users", func(t *testing.T) {
		err := s.CreateUser(ctx, &models.User{Email: "vendor@example.com", PasswordHash: "x", Role: models.RoleVendor, Name: "dup"})
		require.ErrorIs(t, err, db.ErrDuplicateEmail)

		got, err := s.GetUserByEmail(ctx, "sup1@example.com")
		require.NoError(t, err)
		require.Equal(t, sup1.ID, got.ID)
		require.Equal(t, "Kothrud", got.Address.Locality)
		require.Empty(t, got.Reviews)

		_, err = s.GetUser(ctx, 999999)
		require.ErrorIs(t, err, db.ErrNotFound)

		require.NoError(t, s.AddUserReview(ctx, sup1.ID, models.Review{ReviewerID: vendor.ID, Rating: 5, Comment: "great", CreatedAt: time.Now().UTC()}))
		got, err = s.GetUser(ctx, sup1.ID)
		require.NoError(t, err)
		require.Len(t, got.Reviews, 1)

		suppliers, err := s.ListUsers(ctx, models.RoleSupplier)
		require.NoError(t, err)
		require.Len(t, suppliers, 3)
	})

	t.Run("bid counters", func(t *testing.T) {
		r := createRequirement(t, s, vendor.ID, "counters", 1000, 2000)
		require.Equal(t, models.RequirementOpen, r.Status)

		b1 := createBid(t, s, r.ID, sup1.ID, 1500)
		createBid(t, s, r.ID, sup2.ID, 1400)

		err := s.CreateBid(ctx, newBid(r.ID, sup1.ID, 1))
		require.ErrorIs(t, err, db.ErrDuplicateBid)

		got, err := s.GetRequirement(ctx, r.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.TotalBids)
		require.Equal(t, models.RequirementBidding, got.Status)
		require.Equal(t, vendor.ID, got.Vendor.ID)

		bids, err := s.ListBidsForRequirement(ctx, r.ID, true)
		require.NoError(t, err)
		require.Len(t, bids, 2)
		require.Equal(t, sup2.ID, bids[0].SupplierID)
		require.Equal(t, "sup2@example.com", bids[0].Supplier.Email)

		_, err = s.WithdrawBid(ctx, b1.ID)
		require.NoError(t, err)
		_, err = s.WithdrawBid(ctx, b1.ID)
		require.ErrorIs(t, err, db.ErrStateChanged)

		got, err = s.GetRequirement(ctx, r.ID)
		require.NoError(t, err)
		require.Equal(t, 1, got.TotalBids)
		require.Equal(t, models.RequirementBidding, got.Status)

		mine, err := s.ListSupplierBids(ctx, sup1.ID)
		require.NoError(t, err)
		require.Equal(t, "counters", mine[0].Requirement.Title)
	})

	t.Run("withdraw last bid reopens", func(t *testing.T) {
		r := createRequirement(t, s, vendor.ID, "reopen", 100, 200)
		b := createBid(t, s, r.ID, sup1.ID, 150)

		_, err := s.WithdrawBid(ctx, b.ID)
		require.NoError(t, err)

		got, err := s.GetRequirement(ctx, r.ID)
		require.NoError(t, err)
		require.Equal(t, 0, got.TotalBids)
		require.Equal(t, models.RequirementOpen, got.Status)
	})

	t.Run("award", func(t *testing.T) {
		r := createRequirement(t, s, vendor.ID, "award", 1000, 2000)
		b1 := createBid(t, s, r.ID, sup1.ID, 1500)
		b2 := createBid(t, s, r.ID, sup2.ID, 1300)
		b3 := createBid(t, s, r.ID, sup3.ID, 1200)
		_, err := s.WithdrawBid(ctx, b3.ID)
		require.NoError(t, err)

		awarded, bid, err := s.AwardBid(ctx, r.ID, b2.ID)
		require.NoError(t, err)
		require.Equal(t, models.RequirementAwarded, awarded.Status)
		require.Equal(t, sup2.ID, *awarded.AwardedTo)
		require.Equal(t, b2.ID, *awarded.AwardedBid)
		require.Equal(t, models.BidAccepted, bid.Status)
		require.True(t, bid.IsWinning)

		for _, id := range []int64{b1.ID, b3.ID} {
			other, err := s.GetBid(ctx, id)
			require.NoError(t, err)
			require.Equal(t, models.BidRejected, other.Status)
			require.False(t, other.IsWinning)
		}

		card, err := s.GetRequirement(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, card.AwardedSupplier)
		require.Equal(t, sup2.ID, card.AwardedSupplier.ID)
		require.Equal(t, sup2.Email, card.AwardedSupplier.Email)

		_, _, err = s.AwardBid(ctx, r.ID, b1.ID)
		require.ErrorIs(t, err, db.ErrStateChanged)

		err = s.CreateBid(ctx, newBid(r.ID, vendor.ID, 1))
		require.ErrorIs(t, err, db.ErrStateChanged)
	})

	t.Run("award rolls back on foreign bid", func(t *testing.T) {
		r := createRequirement(t, s, vendor.ID, "foreign", 1000, 2000)
		own := createBid(t, s, r.ID, sup1.ID, 1500)
		other := createRequirement(t, s, vendor.ID, "other", 1000, 2000)
		foreign := createBid(t, s, other.ID, sup2.ID, 1100)

		_, _, err := s.AwardBid(ctx, r.ID, foreign.ID)
		require.ErrorIs(t, err, db.ErrNotFound)

		got, err := s.GetBid(ctx, own.ID)
		require.NoError(t, err)
		require.Equal(t, models.BidPending, got.Status)
	})

	t.Run("list filters", func(t *testing.T) {
		cheap := createRequirement(t, s, vendor.ID, "cheap", 10, 50)

		list, total, err := s.ListRequirements(ctx, db.RequirementFilter{MaxBudget: ptr(decimal.NewFromInt(60)), Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, cheap.ID, list[0].ID)

		list, _, err = s.ListRequirements(ctx, db.RequirementFilter{Material: "onion", Locality: "KOTH", Limit: 2})
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, cheap.ID, list[0].ID)

		_, total, err = s.ListRequirements(ctx, db.RequirementFilter{Material: "100%", Limit: 10})
		require.NoError(t, err)
		require.Zero(t, total)

		_, total, err = s.ListRequirements(ctx, db.RequirementFilter{Status: models.RequirementAwarded, Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
	})

	t.Run("analytics", func(t *testing.T) {
		_, err := s.GetAnalytics(ctx, vendor.ID)
		require.ErrorIs(t, err, db.ErrNotFound)

		a, err := s.UpdateAnalytics(ctx, vendor.ID, func(a *models.Analytics) error {
			a.SalesData = append(a.SalesData, models.Sale{ProductName: "Samosa", Quantity: 10, Revenue: decimal.NewFromInt(100)})
			return nil
		})
		require.NoError(t, err)
		require.Len(t, a.SalesData, 1)

		_, err = s.UpdateAnalytics(ctx, vendor.ID, func(a *models.Analytics) error {
			a.SalesData = nil
			return db.ErrStateChanged
		})
		require.ErrorIs(t, err, db.ErrStateChanged)

		a, err = s.GetAnalytics(ctx, vendor.ID)
		require.NoError(t, err)
		require.Len(t, a.SalesData, 1)
		require.Equal(t, "Samosa", a.SalesData[0].ProductName)
	})
}

func ptr[T any](v T) *T { return &v }
