package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	cardModel "cardvault/internal/card/models"
	"cardvault/internal/transaction/models"
	id "cardvault/pkg/domain"
)

// Postgres persists transactions in PostgreSQL. Card deletion cascades here
// through the FK; see internal/platform/postgres for the schema.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const txColumns = `id, card_id, amount, merchant_name, status, decline_reason,
	description, created_at`

func (s *Postgres) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + txColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID.String(), tx.CardID.String(), tx.Amount, tx.MerchantName,
		string(tx.Status), string(tx.DeclineReason), tx.Description, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Postgres) ListByCard(ctx context.Context, cardID id.CardID) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE card_id = $1 ORDER BY created_at DESC`,
		cardID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Postgres) ListByCards(ctx context.Context, cardIDs []id.CardID) ([]*models.Transaction, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(cardIDs))
	for _, cardID := range cardIDs {
		ids = append(ids, cardID.String())
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE card_id = ANY($1) ORDER BY created_at DESC`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var (
		tx             models.Transaction
		txID, cardID   string
		status, reason string
	)
	err := rows.Scan(
		&txID, &cardID, &tx.Amount, &tx.MerchantName, &status, &reason,
		&tx.Description, &tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Status = models.Status(status)
	tx.DeclineReason = cardModel.DeclineReason(reason)
	if tx.ID, err = id.ParseTransactionID(txID); err != nil {
		return nil, fmt.Errorf("scan transaction id: %w", err)
	}
	if tx.CardID, err = id.ParseCardID(cardID); err != nil {
		return nil, fmt.Errorf("scan transaction card id: %w", err)
	}
	return &tx, nil
}
