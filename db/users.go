package db

import (
	"context"
	"fmt"

	"vendorbid/models"
)

const userColumns = `id, email, password_hash, role, name, phone, address, verified,
	verification_documents, reviews, created_at, last_login`

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users
            (email, password_hash, role, name, phone, address, verified, verification_documents)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, last_login`
	err := s.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Role, u.Name, u.Phone, u.Address, u.Verified, u.VerificationDocuments).
		Scan(&u.ID, &u.CreatedAt, &u.LastLogin)
	if isUniqueViolation(err, usersEmailKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if err := s.db.GetContext(ctx, u, query, id); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	if err := s.db.GetContext(ctx, u, query, email); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// UpdateUserProfile меняет только контактные данные
func (s *Storage) UpdateUserProfile(ctx context.Context, id int64, name, phone string, address models.Address) (*models.User, error) {
	u := &models.User{}
	query := `
        UPDATE users
        SET name=$1, phone=$2, address=$3
        WHERE id=$4
        RETURNING ` + userColumns
	if err := s.db.GetContext(ctx, u, query, name, phone, address, id); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Storage) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login=NOW() WHERE id=$1`, id)
	return err
}

func (s *Storage) SetUserVerified(ctx context.Context, id int64, verified bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET verified=$1 WHERE id=$2`, verified, id)
	if err != nil {
		return err
	}
	if err := expectRows(res); err != nil {
		return ErrNotFound
	}
	return nil
}

// ListUsers возвращает пользователей; пустая роль означает всех
func (s *Storage) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if role != "" {
		query += ` WHERE role=$1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC`

	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

// AddUserReview дописывает отзыв в конец вложенного списка
func (s *Storage) AddUserReview(ctx context.Context, userID int64, review models.Review) error {
	query := `
        UPDATE users
        SET reviews = reviews || $1::jsonb
        WHERE id=$2`
	res, err := s.db.ExecContext(ctx, query, models.Reviews{review}, userID)
	if err != nil {
		return fmt.Errorf("append user review: %w", err)
	}
	if err := expectRows(res); err != nil {
		return ErrNotFound
	}
	return nil
}
