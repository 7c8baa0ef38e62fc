// Package postgresql implements the warehouse stores on a Postgres pool.
package postgresql

import (
	"database/sql"
)

// WarehouseStore runs all portal queries against one *sql.DB pool. It
// implements the store interfaces declared by the service packages.
type WarehouseStore struct {
	db *sql.DB
}

func New(db *sql.DB) *WarehouseStore {
	return &WarehouseStore{db: db}
}
