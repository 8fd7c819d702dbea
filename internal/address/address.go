// Package address resolves saved shipping addresses. The address book itself
// is maintained elsewhere; this package only reads it.
package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

const MigrationsTable = "address_schema_migrations"

type Address struct {
	ID         uuid.UUID
	UserID     string
	Label      string
	FullName   string
	Street     string
	City       string
	PostalCode string
	Country    string
	Phone      string
}

// Snapshot renders the address as the free text stored on an order.
func (a *Address) Snapshot() string {
	var parts []string
	for _, p := range []string{a.FullName, a.Street, strings.TrimSpace(a.PostalCode + " " + a.City), a.Country, a.Phone} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Resolver interface {
	Resolve(ctx context.Context, userID, addressID string) (*Address, error)
}

type PostgresResolver struct {
	db *sql.DB
}

func NewPostgresResolver(db *sql.DB) *PostgresResolver {
	return &PostgresResolver{db: db}
}

// Resolve returns the address only if it belongs to userID; someone else's
// address is reported as not found.
func (r *PostgresResolver) Resolve(ctx context.Context, userID, addressID string) (*Address, error) {
	id, err := uuid.Parse(addressID)
	if err != nil {
		return nil, domain.ErrAddressNotFound
	}

	var a Address
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, label, full_name, street, city, postal_code, country, phone
		 FROM addresses WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&a.ID, &a.UserID, &a.Label, &a.FullName, &a.Street, &a.City, &a.PostalCode, &a.Country, &a.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query address: %w", err)
	}
	return &a, nil
}
