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

var ErrNotFound = errors.New("not found")

// recordCols - порядок колонок для SELECT и COPY (соответствует scanRecord).
var recordCols = []string{
	"identity", "position", "protocol", "status", "expected_date", "referral",
	"notes", "amount", "tasks", "wallet", "tx_count", "activity",
}

// RecordRepository - хранилище записей в Postgres. Коллекция identity перезаписывается целиком.
type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

func scanRecord(s interface{ Scan(dest ...any) error }, r *model.Record) error {
	var status string
	if err := s.Scan(&r.Protocol, &status, &r.ExpectedDate, &r.Referral, &r.Notes, &r.Amount, &r.Tasks, &r.Wallet, &r.TxCount, &r.Activity); err != nil {
		return err
	}
	r.Status = model.Status(status)
	return nil
}

// Load возвращает коллекцию identity в порядке position. Нет записей - пустой срез.
func (r *RecordRepository) Load(ctx context.Context, identity string) ([]model.Record, error) {
	defer logger.DeferLogDuration("record.Load", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT protocol, status, expected_date, referral, notes, amount, tasks, wallet, tx_count, activity
		 FROM records WHERE identity = $1 ORDER BY position`,
		identity,
	)
	if err != nil {
		return nil, fmt.Errorf("recordRepo.Load: %w", err)
	}
	defer rows.Close()
	out := []model.Record{}
	for rows.Next() {
		var rec model.Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("recordRepo.Load scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recordRepo.Load: %w", err)
	}
	return out, nil
}

// Save в одной транзакции удаляет строки identity и записывает коллекцию заново (COPY).
// Строки других identity не затрагиваются.
func (r *RecordRepository) Save(ctx context.Context, identity string, records []model.Record) error {
	defer logger.DeferLogDuration("record.Save", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("recordRepo.Save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM records WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("recordRepo.Save delete: %w", err)
	}
	if len(records) > 0 {
		rows := make([][]any, len(records))
		for i, rec := range records {
			rows[i] = []any{
				identity, i, rec.Protocol, string(rec.Status), rec.ExpectedDate, rec.Referral,
				rec.Notes, rec.Amount, rec.Tasks, rec.Wallet, rec.TxCount, rec.Activity,
			}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"records"}, recordCols, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("recordRepo.Save copy: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("recordRepo.Save commit: %w", err)
	}
	return nil
}

// ListIdentities возвращает identity, у которых есть записи.
func (r *RecordRepository) ListIdentities(ctx context.Context) ([]string, error) {
	defer logger.DeferLogDuration("record.ListIdentities", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT identity FROM records ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("recordRepo.ListIdentities: %w", err)
	}
	defer rows.Close()
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("recordRepo.ListIdentities: %w", err)
	}
	return ids, nil
}
