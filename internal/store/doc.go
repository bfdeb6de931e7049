// Package store defines shared persistence abstractions: the DBTX
// interface over database/sql connections and transactions, and the
// common error values store implementations return.
package store
