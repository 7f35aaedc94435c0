package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountCols = `identity, email, created_at, last_login_at, last_alert_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(s interface{ Scan(dest ...any) error }, a *model.Account) error {
	return s.Scan(&a.Identity, &a.Email, &a.CreatedAt, &a.LastLoginAt, &a.LastAlertAt)
}

// UpsertAccount создаёт аккаунт при первом входе и обновляет last_login_at при повторных.
func (r *AccountRepository) UpsertAccount(ctx context.Context, identity, email string, at time.Time) error {
	defer logger.DeferLogDuration("account.Upsert", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (identity, email, created_at, last_login_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (identity) DO UPDATE SET
		   email = EXCLUDED.email,
		   last_login_at = EXCLUDED.last_login_at`,
		identity, email, at,
	)
	if err != nil {
		return fmt.Errorf("accountRepo.Upsert: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	defer logger.DeferLogDuration("account.GetByEmail", time.Now())()
	a := &model.Account{}
	row := r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE email = $1`, email)
	if err := scanAccount(row, a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("accountRepo.GetByEmail: %w", err)
	}
	return a, nil
}

// ListAccounts возвращает все аккаунты в порядке создания.
func (r *AccountRepository) ListAccounts(ctx context.Context) ([]model.Account, error) {
	defer logger.DeferLogDuration("account.ListAccounts", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY created_at, identity`)
	if err != nil {
		return nil, fmt.Errorf("accountRepo.ListAccounts: %w", err)
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, fmt.Errorf("accountRepo.ListAccounts scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) MarkAlerted(ctx context.Context, identity string, at time.Time) error {
	defer logger.DeferLogDuration("account.MarkAlerted", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET last_alert_at = $2 WHERE identity = $1`, identity, at)
	if err != nil {
		return fmt.Errorf("accountRepo.MarkAlerted: %w", err)
	}
	return nil
}
