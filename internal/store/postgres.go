package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/order-ledger/internal/domain/order"
)

const uniqueViolation = "23505"

// PostgresStore persists orders in a single table with the full record as
// JSONB and the transaction id under a unique index. The unique constraint
// makes the idempotency check and the insert one atomic operation: concurrent
// inserts for the same transaction id race at the index, not in application
// code.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a pooled connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the orders table and its indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id             TEXT PRIMARY KEY,
			order_number   TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			data           JSONB NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS orders_transaction_id_key
			ON orders (transaction_id);
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, transaction_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.OrderNumber, o.TransactionID, data, o.CreatedAt, o.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		existing, lookupErr := s.FindByTransactionID(ctx, o.TransactionID)
		dup := &DuplicateTransactionError{TransactionID: o.TransactionID}
		if lookupErr == nil {
			dup.ExistingOrderID = existing.ID
		}
		return dup
	}
	return fmt.Errorf("insert order: %w", err)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.queryOne(ctx, `SELECT data FROM orders WHERE id = $1`, id)
}

func (s *PostgresStore) FindByTransactionID(ctx context.Context, txID string) (*order.Order, error) {
	return s.queryOne(ctx, `SELECT data FROM orders WHERE transaction_id = $1`, txID)
}

func (s *PostgresStore) queryOne(ctx context.Context, query, arg string) (*order.Order, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var o order.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) Update(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET data = $2, updated_at = $3 WHERE id = $1`,
		o.ID, data, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM orders ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var o order.Order
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
