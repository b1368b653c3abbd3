package repository

import (
	"context"
	"errors"
	"fmt"

	"earnify/domain/entities"
	"earnify/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const offerColumns = `id, title, description, reward, link, image_url, category, offer_type, is_active, created_at`

// OfferRepository implements interfaces.OfferRepository
type OfferRepository struct {
	q Queryable
}

func newOfferRepository(q Queryable) interfaces.OfferRepository {
	return &OfferRepository{q: q}
}

func scanOffer(row pgx.Row) (*entities.Offer, error) {
	var offer entities.Offer
	err := row.Scan(
		&offer.ID,
		&offer.Title,
		&offer.Description,
		&offer.Reward,
		&offer.Link,
		&offer.ImageURL,
		&offer.Category,
		&offer.Type,
		&offer.IsActive,
		&offer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id int64) (*entities.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM cpa_offers WHERE id = $1`

	offer, err := scanOffer(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer %d: %w", id, err)
	}
	return offer, nil
}

// ListActive returns active offers, highest reward first
func (r *OfferRepository) ListActive(ctx context.Context) ([]*entities.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM cpa_offers WHERE is_active ORDER BY reward DESC, id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []*entities.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", err)
	}
	return offers, nil
}

func (r *OfferRepository) Create(ctx context.Context, offer *entities.Offer) error {
	query := `
		INSERT INTO cpa_offers (title, description, reward, link, image_url, category, offer_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		offer.Title,
		offer.Description,
		offer.Reward,
		offer.Link,
		offer.ImageURL,
		offer.Category,
		offer.Type,
		offer.IsActive,
	).Scan(&offer.ID, &offer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create offer %q: %w", offer.Title, err)
	}
	return nil
}

func (r *OfferRepository) RecordClick(ctx context.Context, userID, offerID int64) error {
	query := `INSERT INTO offer_clicks (user_id, offer_id) VALUES ($1, $2)`
	if _, err := r.q.Exec(ctx, query, userID, offerID); err != nil {
		return fmt.Errorf("failed to record click on offer %d by user %d: %w", offerID, userID, err)
	}
	return nil
}
