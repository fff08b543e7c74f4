package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kofiasare/kantamanto/internal/models"
)

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, username, email, role, password, is_active FROM users WHERE username = ?
	`, username)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Password, &user.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, username, email, role, password, is_active FROM users WHERE id = ?
	`, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Password, &user.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser is mainly for seeding accounts via the CLI.
func (s *Store) CreateUser(ctx context.Context, username, email, role, hashedPassword string) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (username, email, role, password, is_active) VALUES (?, ?, ?, ?, 1)
	`, username, email, role, hashedPassword)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}
