package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

// Repository is the read side of the product catalog. Stock counters live in
// the same database and are mutated only through inventory/store.
type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	Close() error
	RunMigrations(string) error
}

// filePragmas are set on every pooled connection of a file database.
// Concurrent stock writers wait up to five seconds for the write lock.
var filePragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)"}

// DSN returns the driver data source name for dbPath. In-memory databases
// are left untouched.
func DSN(dbPath string) string {
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dbPath)
	for _, p := range filePragmas {
		b.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return b.String()
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

// DB exposes the handle so the stock ledger can share the catalog database.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const selectProduct = `
	SELECT id, name, description, price, stock_quantity, variants, created_at
	FROM products
`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	p := &domain.Product{}
	var variants string
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &variants, &p.CreatedAt); err != nil {
		return nil, err
	}
	if variants != "" {
		if err := json.Unmarshal([]byte(variants), &p.Variants); err != nil {
			return nil, fmt.Errorf("failed to decode variants of %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func (r *Repository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, selectProduct+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, selectProduct+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// GetProducts resolves a batch of ids. Unknown ids are absent from the map.
func (r *Repository) GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	result := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := selectProduct + " WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
