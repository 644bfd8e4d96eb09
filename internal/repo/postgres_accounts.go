package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

const uniqueViolation = "23505"

type PostgresAccountRepo struct {
	db *sql.DB
}

func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

func (r *PostgresAccountRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id           TEXT PRIMARY KEY,
			username     TEXT UNIQUE NOT NULL,
			access_token TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) Create(ctx context.Context, acct model.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, access_token, name, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acct.ID, acct.Username, acct.AccessToken, acct.Name, acct.PhoneNumber, acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) Get(ctx context.Context, id string) (model.Account, error) {
	return r.getOne(ctx, `
		SELECT id, username, access_token, name, phone_number, created_at
		FROM accounts
		WHERE id = $1
	`, id)
}

func (r *PostgresAccountRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.getOne(ctx, `
		SELECT id, username, access_token, name, phone_number, created_at
		FROM accounts
		WHERE username = $1
	`, username)
}

func (r *PostgresAccountRepo) getOne(ctx context.Context, query string, arg string) (model.Account, error) {
	var a model.Account
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID,
		&a.Username,
		&a.AccessToken,
		&a.Name,
		&a.PhoneNumber,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func (r *PostgresAccountRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, access_token, name, phone_number, created_at
		FROM accounts
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(
			&a.ID,
			&a.Username,
			&a.AccessToken,
			&a.Name,
			&a.PhoneNumber,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
