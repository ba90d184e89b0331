// Package db manages the PostgreSQL connection pool, embedded schema
// migrations, and transaction helpers used by every persistent store in
// the application.
package db
