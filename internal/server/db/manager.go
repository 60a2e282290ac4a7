// Package db wires the PostgreSQL connection, migrations and repositories
// into a single manager handed to the composition root.
package db

import (
	"context"
	"database/sql"

	"github.com/jkalnina/authgate/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Close() error
}
