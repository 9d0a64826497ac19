package repository

import (
	"embed"
	"fmt"
	"sync"
)

//go:embed sql/products/*.sql
var queryFS embed.FS

// Query names, one per product operation. Each maps to an embedded SQL file
// under sql/products/.
const (
	queryCreateProduct   = "create"
	queryFindProductByID = "find_by_id"
	queryFindAllProducts = "find_all"
	queryCountProducts   = "count"
	queryUpdateProduct   = "update"
	queryDeleteProduct   = "delete"
)

var (
	queryMu    sync.RWMutex
	queryCache = make(map[string]string)
)

// loadQuery returns the SQL text for a named product query, reading the
// embedded file once and serving subsequent calls from the cache.
func loadQuery(name string) (string, error) {
	queryMu.RLock()
	if sql, ok := queryCache[name]; ok {
		queryMu.RUnlock()
		return sql, nil
	}
	queryMu.RUnlock()

	content, err := queryFS.ReadFile(fmt.Sprintf("sql/products/%s.sql", name))
	if err != nil {
		return "", fmt.Errorf("failed to load query %q: %w", name, err)
	}

	queryMu.Lock()
	queryCache[name] = string(content)
	queryMu.Unlock()

	return string(content), nil
}
