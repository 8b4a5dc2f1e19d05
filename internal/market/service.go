// Package market реализует операции площадки: учётные записи, заявки,
// предложения, выбор победителя, отзывы и аналитику продавца.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"vendorbid/db"
	"vendorbid/internal/events"
	"vendorbid/internal/metrics"
	"vendorbid/internal/policy"
	"vendorbid/models"
)

// Store это хранилище, с которым работает сервис. *db.Storage удовлетворяет ему.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id int64, name, phone string, address models.Address) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
	SetUserVerified(ctx context.Context, id int64, verified bool) error
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	AddUserReview(ctx context.Context, userID int64, review models.Review) error

	CreateRequirement(ctx context.Context, r *models.Requirement) error
	GetRequirement(ctx context.Context, id int64) (*models.Requirement, error)
	ListRequirements(ctx context.Context, f db.RequirementFilter) ([]models.Requirement, int, error)
	ListVendorRequirements(ctx context.Context, vendorID int64) ([]models.Requirement, error)
	UpdateRequirement(ctx context.Context, r *models.Requirement) error
	AwardBid(ctx context.Context, requirementID, bidID int64) (*models.Requirement, *models.Bid, error)

	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id int64) (*models.Bid, error)
	FindSupplierBid(ctx context.Context, requirementID, supplierID int64) (*models.Bid, error)
	UpdateBid(ctx context.Context, b *models.Bid) error
	WithdrawBid(ctx context.Context, bidID int64) (*models.Bid, error)
	ListBidsForRequirement(ctx context.Context, requirementID int64, withReviews bool) ([]models.Bid, error)
	ListSupplierBids(ctx context.Context, supplierID int64) ([]models.Bid, error)
	AddBidReview(ctx context.Context, bidID int64, review models.Review) (*models.Bid, error)

	GetAnalytics(ctx context.Context, vendorID int64) (*models.Analytics, error)
	UpdateAnalytics(ctx context.Context, vendorID int64, fn func(a *models.Analytics) error) (*models.Analytics, error)
}

var _ Store = (*db.Storage)(nil)

type Service struct {
	store        Store
	publisher    events.Publisher
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	now          func() time.Time
	passwordCost int
}

// Option настраивает Service
type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.passwordCost = cost }
}

// WithClock подменяет источник времени, используется в тестах
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		publisher:    events.NopPublisher{},
		metrics:      metrics.NopMetrics(),
		logger:       zerolog.Nop(),
		now:          time.Now,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity это пользователь, извлечённый из токена доступа
type Identity struct {
	UserID int64
	Role   models.Role
}

// actor загружает пользователя, чтобы проверить актуальную роль и подтверждённость.
// Удалённый пользователь с живым токеном получает 401.
func (s *Service) actor(ctx context.Context, id Identity) (policy.Actor, *models.User, error) {
	u, err := s.store.GetUser(ctx, id.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return policy.Actor{}, nil, Unauthorized("User not found")
	}
	if err != nil {
		return policy.Actor{}, nil, err
	}
	return policy.Actor{ID: u.ID, Role: u.Role, Verified: u.Verified}, u, nil
}

// checkRole отсекает чужую роль до загрузки ресурса
func checkRole(actor policy.Actor, action policy.Action) error {
	if err := policy.CheckRole(actor, action); err != nil {
		return Forbidden(err.Error())
	}
	return nil
}

// authorize переводит отказ политики в ошибку Forbidden
func authorize(actor policy.Actor, action policy.Action, res policy.Resource) error {
	if err := policy.Authorize(actor, action, res); err != nil {
		return Forbidden(err.Error())
	}
	return nil
}

// storeErr переводит ошибки хранилища в ошибки домена
func storeErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return NotFound(notFoundMsg)
	default:
		return err
	}
}
