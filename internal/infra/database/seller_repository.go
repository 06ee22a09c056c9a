package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type SellerRepository struct {
	DB *sql.DB
}

func NewSellerRepository(db *sql.DB) *SellerRepository {
	return &SellerRepository{DB: db}
}

// ListForContact returns one row per distinct seller name across the
// contact's deals, keeping the first stored occurrence.
func (r *SellerRepository) ListForContact(ctx context.Context, contactID int64) ([]entity.Seller, error) {
	query := `
		SELECT ds.id, ds.deal_id, ds.name, ds.last_name, COALESCE(ds.email, ''), COALESCE(ds.phone, '')
		FROM deal_sellers ds
		JOIN deals d ON d.id = ds.deal_id
		WHERE d.contact_id = $1
		ORDER BY ds.id
	`

	rows, err := r.DB.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("error listing sellers: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var sellers []entity.Seller
	for rows.Next() {
		var s entity.Seller
		if err := rows.Scan(&s.ID, &s.DealID, &s.Name, &s.LastName, &s.Email, &s.Phone); err != nil {
			return nil, fmt.Errorf("error scanning seller: %w", err)
		}
		key := s.Name + "\x00" + s.LastName
		if seen[key] {
			continue
		}
		seen[key] = true
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}
