package market

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"vendorbid/db"
	"vendorbid/internal/auth"
	"vendorbid/internal/policy"
	"vendorbid/models"
)

const minPasswordLength = 6

type RegisterInput struct {
	Email                 string                       `json:"email"`
	Password              string                       `json:"password"`
	Name                  string                       `json:"name"`
	Phone                 string                       `json:"phone"`
	UserType              models.Role                  `json:"userType"`
	Address               models.Address               `json:"address"`
	VerificationDocuments models.VerificationDocuments `json:"verificationDocuments"`
}

type ProfileInput struct {
	Name    *string         `json:"name"`
	Phone   *string         `json:"phone"`
	Address *models.Address `json:"address"`
}

type VerificationStatus struct {
	IsVerified            bool                         `json:"isVerified"`
	VerificationDocuments models.VerificationDocuments `json:"verificationDocuments"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterInput(in *RegisterInput) error {
	var errs fieldErrors
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		errs.add("email", "Please enter a valid email")
	}
	if len(in.Password) < minPasswordLength {
		errs.add("password", "Password must be at least 6 characters long")
	}
	if in.Name == "" {
		errs.add("name", "Name is required")
	}
	if in.UserType != models.RoleVendor && in.UserType != models.RoleSupplier {
		errs.add("userType", "User type must be vendor or supplier")
	}
	return errs.err()
}

// Register создаёт продавца или поставщика. Администраторы заводятся только из CLI.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateRegisterInput(&in); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in)
}

// CreateAdmin заводит администратора в обход публичной регистрации
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	in := RegisterInput{Email: email, Password: password, Name: name, UserType: models.RoleVendor}
	if err := validateRegisterInput(&in); err != nil {
		return nil, err
	}
	in.UserType = models.RoleAdmin
	return s.createUser(ctx, in)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := auth.HashPassword(in.Password, s.passwordCost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:                 in.Email,
		PasswordHash:          hash,
		Role:                  in.UserType,
		Name:                  in.Name,
		Phone:                 strings.TrimSpace(in.Phone),
		Address:               in.Address,
		Verified:              in.UserType == models.RoleAdmin,
		VerificationDocuments: in.VerificationDocuments,
		Reviews:               models.Reviews{},
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return nil, Conflict("User already exists")
		}
		return nil, err
	}

	s.logger.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

// Login проверяет пароль и отмечает время входа
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	var errs fieldErrors
	if email == "" {
		errs.add("email", "Please enter a valid email")
	}
	if password == "" {
		errs.add("password", "Password is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return nil, Unauthorized("Invalid credentials")
	}

	if err := s.store.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	u.LastLogin = s.now()
	return u, nil
}

func (s *Service) Me(ctx context.Context, id Identity) (*models.User, error) {
	_, u, err := s.actor(ctx, id)
	return u, err
}

func (s *Service) VendorProfile(ctx context.Context, id Identity) (*models.User, error) {
	return s.profile(ctx, id, policy.ViewVendorProfile)
}

func (s *Service) SupplierProfile(ctx context.Context, id Identity) (*models.User, error) {
	return s.profile(ctx, id, policy.ViewSupplierProfile)
}

func (s *Service) UpdateVendorProfile(ctx context.Context, id Identity, in ProfileInput) (*models.User, error) {
	return s.updateProfile(ctx, id, policy.ViewVendorProfile, in)
}

func (s *Service) UpdateSupplierProfile(ctx context.Context, id Identity, in ProfileInput) (*models.User, error) {
	return s.updateProfile(ctx, id, policy.ViewSupplierProfile, in)
}

func (s *Service) profile(ctx context.Context, id Identity, action policy.Action) (*models.User, error) {
	actor, u, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, action, policy.Resource{OwnerID: u.ID}); err != nil {
		return nil, err
	}
	return u, nil
}

// updateProfile меняет только имя, телефон и адрес; остальные поля профиля неизменны
func (s *Service) updateProfile(ctx context.Context, id Identity, action policy.Action, in ProfileInput) (*models.User, error) {
	u, err := s.profile(ctx, id, action)
	if err != nil {
		return nil, err
	}

	name, phone, address := u.Name, u.Phone, u.Address
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, Invalid(FieldError{Field: "name", Message: "Name is required"})
		}
	}
	if in.Phone != nil {
		phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		address = *in.Address
	}

	updated, err := s.store.UpdateUserProfile(ctx, u.ID, name, phone, address)
	return updated, storeErr(err, "User not found")
}

func (s *Service) VerificationStatus(ctx context.Context, id Identity) (*VerificationStatus, error) {
	u, err := s.profile(ctx, id, policy.ViewVerification)
	if err != nil {
		return nil, err
	}
	return &VerificationStatus{IsVerified: u.Verified, VerificationDocuments: u.VerificationDocuments}, nil
}

// VerifySupplier отмечает поставщика подтверждённым
func (s *Service) VerifySupplier(ctx context.Context, id Identity, supplierID int64) error {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, policy.VerifySupplier, policy.Resource{}); err != nil {
		return err
	}

	target, err := s.store.GetUser(ctx, supplierID)
	if err != nil {
		return storeErr(err, "Supplier not found")
	}
	if target.Role != models.RoleSupplier {
		return NotFound("Supplier not found")
	}
	if err := s.store.SetUserVerified(ctx, supplierID, true); err != nil {
		return storeErr(err, "Supplier not found")
	}

	s.logger.Info().Int64("supplier_id", supplierID).Int64("admin_id", actor.ID).Msg("supplier verified")
	return nil
}

// ListUsers возвращает пользователей; пустой userType означает всех
func (s *Service) ListUsers(ctx context.Context, id Identity, userType string) ([]models.User, error) {
	actor, _, err := s.actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.ListUsers, policy.Resource{}); err != nil {
		return nil, err
	}

	role := models.Role(userType)
	if role != "" && !models.ValidRole(role) {
		return nil, Invalid(FieldError{Field: "userType", Message: "Invalid user type"})
	}
	return s.store.ListUsers(ctx, role)
}
