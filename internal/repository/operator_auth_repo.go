package repository

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

type Operator struct {
	ID           int64
	Email        string
	PasswordHash string
}

type OperatorAuthRepository interface {
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	Create(ctx context.Context, email, password string) error
}

type operatorAuthRepository struct {
	db *sql.DB
}

func NewOperatorAuthRepository(db *sql.DB) OperatorAuthRepository {
	return &operatorAuthRepository{db: db}
}

func (r *operatorAuthRepository) GetByEmail(ctx context.Context, email string) (*Operator, error) {
	var op Operator
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM operators WHERE email = $1", email).
		Scan(&op.ID, &op.Email, &op.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (r *operatorAuthRepository) Create(ctx context.Context, email, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO operators (email, password_hash) VALUES ($1, $2)", email, hashed)
	return err
}
