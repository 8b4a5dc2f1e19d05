// Package markettest содержит хранилище в памяти с той же семантикой, что и db.Storage.
package markettest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vendorbid/db"
	"vendorbid/models"
)

// Store хранит данные в памяти. Многострочные операции атомарны под мьютексом.
type Store struct {
	mu sync.Mutex

	users        map[int64]*models.User
	requirements map[int64]*models.Requirement
	bids         map[int64]*models.Bid
	analytics    map[int64]*models.Analytics
	nextID       int64

	// AwardErr, если задан, прерывает AwardBid после частичных изменений,
	// чтобы проверить откат.
	AwardErr error

	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        map[int64]*models.User{},
		requirements: map[int64]*models.Requirement{},
		bids:         map[int64]*models.Bid{},
		analytics:    map[int64]*models.Analytics{},
		Now:          time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Reviews = append(models.Reviews{}, u.Reviews...)
	return &c
}

func copyRequirement(r *models.Requirement) *models.Requirement {
	c := *r
	c.Materials = append(models.RequiredMaterials{}, r.Materials...)
	c.Tags = append(models.Tags{}, r.Tags...)
	return &c
}

func copyBid(b *models.Bid) *models.Bid {
	c := *b
	c.Materials = append(models.BidMaterials{}, b.Materials...)
	c.Photos = append(models.Photos{}, b.Photos...)
	c.Reviews = append(models.Reviews{}, b.Reviews...)
	return &c
}

func copyAnalytics(a *models.Analytics) *models.Analytics {
	c := *a
	c.SalesData = append(models.SalesData{}, a.SalesData...)
	c.MaterialUsage = append(models.MaterialUsage{}, a.MaterialUsage...)
	return &c
}

func summary(u *models.User, withReviews bool) *models.UserSummary {
	sum := &models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Verified: u.Verified}
	if withReviews {
		sum.Reviews = append(models.Reviews{}, u.Reviews...)
	}
	return sum
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return db.ErrDuplicateEmail
		}
	}
	u.ID = s.id()
	u.CreatedAt = s.Now()
	u.LastLogin = u.CreatedAt
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) UpdateUserProfile(_ context.Context, id int64, name, phone string, address models.Address) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	u.Name, u.Phone, u.Address = name, phone, address
	return copyUser(u), nil
}

func (s *Store) TouchLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.LastLogin = s.Now()
	}
	return nil
}

func (s *Store) SetUserVerified(_ context.Context, id int64, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.Verified = verified
	return nil
}

func (s *Store) ListUsers(_ context.Context, role models.Role) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []models.User{}
	for _, u := range s.users {
		if role == "" || u.Role == role {
			users = append(users, *copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (s *Store) AddUserReview(_ context.Context, userID int64, review models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Reviews = append(u.Reviews, review)
	return nil
}

func (s *Store) CreateRequirement(_ context.Context, r *models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	r.Status = models.RequirementOpen
	r.TotalBids = 0
	r.CreatedAt = s.Now()
	r.UpdatedAt = r.CreatedAt
	s.requirements[r.ID] = copyRequirement(r)
	return nil
}

func (s *Store) GetRequirement(_ context.Context, id int64) (*models.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requirements[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := copyRequirement(r)
	if v, ok := s.users[r.VendorID]; ok {
		c.Vendor = summary(v, false)
	}
	if r.AwardedTo != nil {
		if v, ok := s.users[*r.AwardedTo]; ok {
			c.AwardedSupplier = summary(v, false)
		}
	}
	return c, nil
}

func (s *Store) ListRequirements(_ context.Context, f db.RequirementFilter) ([]models.Requirement, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Requirement
	for _, r := range s.requirements {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Locality != "" && !containsFold(r.DeliveryLocation.Locality, f.Locality) {
			continue
		}
		if f.Material != "" && !hasMaterial(r.Materials, f.Material) {
			continue
		}
		if f.MinBudget != nil && r.Budget.Min.LessThan(*f.MinBudget) {
			continue
		}
		if f.MaxBudget != nil && r.Budget.Max.GreaterThan(*f.MaxBudget) {
			continue
		}
		matched = append(matched, *copyRequirement(r))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	page := []models.Requirement{}
	for i := f.Offset; i < total && len(page) < f.Limit; i++ {
		page = append(page, matched[i])
	}
	return page, total, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasMaterial(materials models.RequiredMaterials, name string) bool {
	for _, m := range materials {
		if containsFold(m.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) ListVendorRequirements(_ context.Context, vendorID int64) ([]models.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Requirement{}
	for _, r := range s.requirements {
		if r.VendorID == vendorID {
			out = append(out, *copyRequirement(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdateRequirement(_ context.Context, r *models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requirements[r.ID]
	if !ok || cur.Status != models.RequirementOpen {
		return db.ErrStateChanged
	}
	c := copyRequirement(r)
	c.Status, c.TotalBids, c.AwardedTo, c.AwardedBid = cur.Status, cur.TotalBids, cur.AwardedTo, cur.AwardedBid
	c.UpdatedAt = s.Now()
	c.Vendor = nil
	s.requirements[r.ID] = c
	r.UpdatedAt = c.UpdatedAt
	return nil
}

func (s *Store) AwardBid(_ context.Context, requirementID, bidID int64) (*models.Requirement, *models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requirements[requirementID]
	if !ok {
		return nil, nil, db.ErrNotFound
	}
	if !r.Status.AcceptsBids() {
		return nil, nil, db.ErrStateChanged
	}
	b, ok := s.bids[bidID]
	if !ok || b.RequirementID != requirementID {
		return nil, nil, db.ErrNotFound
	}
	if b.Status != models.BidPending {
		return nil, nil, db.ErrStateChanged
	}

	// Изменения собираются в копиях и применяются только при успехе
	now := s.Now()
	staged := map[int64]*models.Bid{}
	for id, other := range s.bids {
		if other.RequirementID != requirementID || id == bidID {
			continue
		}
		c := copyBid(other)
		c.Status, c.IsWinning, c.UpdatedAt = models.BidRejected, false, now
		staged[id] = c
	}
	if s.AwardErr != nil {
		return nil, nil, s.AwardErr
	}

	winner := copyBid(b)
	winner.Status, winner.IsWinning, winner.UpdatedAt = models.BidAccepted, true, now
	staged[bidID] = winner

	req := copyRequirement(r)
	req.Status = models.RequirementAwarded
	req.AwardedTo = &winner.SupplierID
	req.AwardedBid = &winner.ID
	req.UpdatedAt = now

	for id, c := range staged {
		s.bids[id] = c
	}
	s.requirements[requirementID] = req
	return copyRequirement(req), copyBid(winner), nil
}

func (s *Store) CreateBid(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.bids {
		if other.RequirementID == b.RequirementID && other.SupplierID == b.SupplierID {
			return db.ErrDuplicateBid
		}
	}
	r, ok := s.requirements[b.RequirementID]
	if !ok || !r.Status.AcceptsBids() {
		return db.ErrStateChanged
	}

	b.ID = s.id()
	b.Status = models.BidPending
	b.IsWinning = false
	b.Reviews = models.Reviews{}
	b.SubmittedAt = s.Now()
	b.UpdatedAt = b.SubmittedAt
	s.bids[b.ID] = copyBid(b)

	r.TotalBids++
	r.Status = models.RequirementBidding
	r.UpdatedAt = b.SubmittedAt
	return nil
}

func (s *Store) GetBid(_ context.Context, id int64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyBid(b), nil
}

func (s *Store) FindSupplierBid(_ context.Context, requirementID, supplierID int64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bids {
		if b.RequirementID == requirementID && b.SupplierID == supplierID {
			return copyBid(b), nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) UpdateBid(_ context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bids[b.ID]
	if !ok || cur.Status != models.BidPending {
		return db.ErrStateChanged
	}
	cur.Amount, cur.DeliveryTime, cur.Description = b.Amount, b.DeliveryTime, b.Description
	cur.Materials = append(models.BidMaterials{}, b.Materials...)
	cur.Terms = b.Terms
	cur.UpdatedAt = s.Now()
	b.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *Store) WithdrawBid(_ context.Context, bidID int64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok || b.Status != models.BidPending {
		return nil, db.ErrStateChanged
	}
	b.Status = models.BidWithdrawn
	b.UpdatedAt = s.Now()

	if r, ok := s.requirements[b.RequirementID]; ok {
		if r.TotalBids > 0 {
			r.TotalBids--
		}
		if r.TotalBids == 0 && r.Status == models.RequirementBidding {
			r.Status = models.RequirementOpen
		}
		r.UpdatedAt = b.UpdatedAt
	}
	return copyBid(b), nil
}

func (s *Store) ListBidsForRequirement(_ context.Context, requirementID int64, withReviews bool) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Bid{}
	for _, b := range s.bids {
		if b.RequirementID != requirementID {
			continue
		}
		c := copyBid(b)
		if u, ok := s.users[b.SupplierID]; ok {
			c.Supplier = summary(u, withReviews)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.LessThan(out[j].Amount)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListSupplierBids(_ context.Context, supplierID int64) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Bid{}
	for _, b := range s.bids {
		if b.SupplierID != supplierID {
			continue
		}
		c := copyBid(b)
		if r, ok := s.requirements[b.RequirementID]; ok {
			c.Requirement = &models.RequirementSummary{
				ID:             r.ID,
				Title:          r.Title,
				Description:    r.Description,
				Status:         r.Status,
				Budget:         r.Budget,
				BiddingEndDate: r.BiddingEndDate,
				VendorID:       r.VendorID,
			}
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) AddBidReview(_ context.Context, bidID int64, review models.Review) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok {
		return nil, db.ErrNotFound
	}
	b.Reviews = append(b.Reviews, review)
	return copyBid(b), nil
}

func (s *Store) GetAnalytics(_ context.Context, vendorID int64) (*models.Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analytics[vendorID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyAnalytics(a), nil
}

func (s *Store) UpdateAnalytics(_ context.Context, vendorID int64, fn func(a *models.Analytics) error) (*models.Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := &models.Analytics{VendorID: vendorID, SalesData: models.SalesData{}, MaterialUsage: models.MaterialUsage{}}
	if a, ok := s.analytics[vendorID]; ok {
		work = copyAnalytics(a)
	}
	if err := fn(work); err != nil {
		return nil, err
	}
	work.LastUpdated = s.Now()
	s.analytics[vendorID] = copyAnalytics(work)
	return work, nil
}

// Requirement возвращает заявку как есть, для проверок в тестах
func (s *Store) Requirement(id int64) models.Requirement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *copyRequirement(s.requirements[id])
}

// Bid возвращает предложение как есть, для проверок в тестах
func (s *Store) Bid(id int64) models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *copyBid(s.bids[id])
}
