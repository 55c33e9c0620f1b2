package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver
	"github.com/pkg/errors"
)

type Config struct {
	User     string `mapstructure:"user"`
	Host     string `mapstructure:"host"`
	Database string `mapstructure:"database"`
	Password string `mapstructure:"password"`
}

// Backend is a SQL implementation of both the plan catalog and the stake
// ledger.
type Backend struct {
	drv *entsql.Driver
	now func() time.Time
}

// CreateBackend connects to MySQL.
func CreateBackend(config Config) (*Backend, error) {
	drv, err := entsql.Open(dialect.MySQL, fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=True",
		config.User, config.Password, config.Host, config.Database))
	if err != nil {
		return nil, err
	}

	return newBackend(drv), nil
}

// OpenSQLite opens (or creates) a SQLite database file. Transactions begin
// IMMEDIATE so concurrent writers queue on the busy timeout instead of
// failing a read-to-write lock upgrade.
func OpenSQLite(path string) (*Backend, error) {
	drv, err := entsql.Open(dialect.SQLite, path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	return newBackend(drv), nil
}

// OpenMemSQLite opens a private in-memory SQLite database with the schema
// already applied.
func OpenMemSQLite() (*Backend, error) {
	db, err := sql.Open(dialect.SQLite, ":memory:")
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a distinct database
	db.SetMaxOpenConns(1)

	b := newBackend(entsql.OpenDB(dialect.SQLite, db))
	if err := b.Migrate(context.Background()); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func newBackend(drv *entsql.Driver) *Backend {
	return &Backend{
		drv: drv,
		now: time.Now,
	}
}

// Migrate creates the tables and indexes if they do not exist.
func (c *Backend) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if c.drv.Dialect() == dialect.MySQL {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := c.drv.DB().ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}

func (c *Backend) Ping(ctx context.Context) error {
	return c.drv.DB().PingContext(ctx)
}

func (c *Backend) Close() error {
	return c.drv.Close()
}

func (c *Backend) builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.drv.Dialect())
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (c *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.drv.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
