package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const reportQueryTimeout = 10 * time.Second

// ReportingClient runs read-only aggregate queries built with goqu. It uses
// its own pool so reporting load can be pointed at a replica.
type ReportingClient struct {
	db   *sqlx.DB
	Goqu *goqu.Database
}

func NewReportingClient(dsn string, maxOpen, maxIdle int) (*ReportingClient, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open reporting database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping reporting database: %w", err)
	}

	return &ReportingClient{db: db, Goqu: goqu.New("postgres", db)}, nil
}

func (c *ReportingClient) Close() error {
	return c.db.Close()
}

func (c *ReportingClient) Get(ctx context.Context, dest any, query *goqu.SelectDataset) error {
	q, args, err := query.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("unable to build query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, reportQueryTimeout)
	defer cancel()

	if err := c.db.GetContext(ctx, dest, q, args...); err != nil {
		return fmt.Errorf("unable to execute query: %w", err)
	}
	return nil
}

func (c *ReportingClient) Select(ctx context.Context, dest any, query *goqu.SelectDataset) error {
	q, args, err := query.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("unable to build query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, reportQueryTimeout)
	defer cancel()

	if err := c.db.SelectContext(ctx, dest, q, args...); err != nil {
		return fmt.Errorf("unable to execute select query: %w", err)
	}
	return nil
}
