package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cardvault/internal/card/models"
	id "cardvault/pkg/domain"
	"cardvault/pkg/platform/sentinel"
)

// uniqueViolation is the postgres error code for duplicate keys.
const uniqueViolation = "23505"

// Postgres persists cards in PostgreSQL. See internal/platform/postgres for
// the schema.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const cardColumns = `id, user_id, card_number, last_four_digits, cvv, name,
	merchant_lock, spending_limit, current_spent, is_active, expiry_date,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		card.ID.String(), card.UserID.String(), card.Number, card.LastFour,
		card.CVV, card.Name, card.MerchantLock, card.SpendingLimit,
		card.CurrentSpent, card.IsActive, card.ExpiryDate,
		card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, cardID id.CardID) (*models.Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, cardID.String())
	return scanCard(row)
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY created_at DESC`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, card *models.Card) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cards SET
			name = $2, merchant_lock = $3, spending_limit = $4,
			current_spent = $5, is_active = $6, expiry_date = $7, updated_at = $8
		WHERE id = $1
	`, card.ID.String(), card.Name, card.MerchantLock, card.SpendingLimit,
		card.CurrentSpent, card.IsActive, card.ExpiryDate, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, cardID id.CardID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, cardID.String())
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute runs validate then mutate under a row lock so the limit check and
// the spend write cannot interleave with a concurrent purchase.
func (s *Postgres) Execute(ctx context.Context, cardID id.CardID, validate func(*models.Card) error, mutate func(*models.Card)) (*models.Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, cardID.String())
	card, err := scanCard(row)
	if err != nil {
		return nil, err
	}

	if err := validate(card); err != nil {
		return card, err
	}

	mutate(card)
	if _, err := tx.ExecContext(ctx, `
		UPDATE cards SET
			name = $2, merchant_lock = $3, spending_limit = $4,
			current_spent = $5, is_active = $6, expiry_date = $7, updated_at = $8
		WHERE id = $1
	`, card.ID.String(), card.Name, card.MerchantLock, card.SpendingLimit,
		card.CurrentSpent, card.IsActive, card.ExpiryDate, card.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update card in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return card, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		card             models.Card
		cardID, userID   string
		name             sql.NullString
	)
	err := row.Scan(
		&cardID, &userID, &card.Number, &card.LastFour, &card.CVV, &name,
		&card.MerchantLock, &card.SpendingLimit, &card.CurrentSpent,
		&card.IsActive, &card.ExpiryDate, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}

	card.Name = name.String
	if card.ID, err = id.ParseCardID(cardID); err != nil {
		return nil, fmt.Errorf("scan card id: %w", err)
	}
	if card.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("scan card user id: %w", err)
	}
	return &card, nil
}
