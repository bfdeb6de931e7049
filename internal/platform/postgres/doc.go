// Package postgres implements the persistence interfaces over PostgreSQL,
// accessed through database/sql with the pgx driver.
package postgres
