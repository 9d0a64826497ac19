package database

import (
	"strings"
	"testing"
)

func readSchema(t *testing.T) string {
	t.Helper()

	content, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		t.Fatalf("Failed to read embedded schema: %v", err)
	}

	return string(content)
}

func TestSchemaCreatesProductsTable(t *testing.T) {
	schema := readSchema(t)

	if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS products") {
		t.Error("Schema does not create the products table")
	}

	if !strings.Contains(schema, "CREATE INDEX IF NOT EXISTS idx_products_name") {
		t.Error("Schema does not create the name index")
	}
}

func TestProductsTableHasRequiredColumns(t *testing.T) {
	schema := readSchema(t)

	requiredColumns := []string{
		"id BIGSERIAL PRIMARY KEY",
		"name VARCHAR(255) NOT NULL",
		"description TEXT",
		"price NUMERIC(10, 2) NOT NULL",
		"stock_quantity INTEGER NOT NULL DEFAULT 0",
		"version INTEGER NOT NULL DEFAULT 0",
		"created_at TIMESTAMPTZ NOT NULL DEFAULT now()",
		"updated_at TIMESTAMPTZ NOT NULL DEFAULT now()",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(schema, column) {
			t.Errorf("Products table missing required column definition: %s", column)
		}
	}
}

func TestProductsTableHasNonNegativeConstraints(t *testing.T) {
	schema := readSchema(t)

	requiredChecks := []string{
		"CHECK (price >= 0)",
		"CHECK (stock_quantity >= 0)",
	}

	for _, check := range requiredChecks {
		if !strings.Contains(schema, check) {
			t.Errorf("Products table missing constraint: %s", check)
		}
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	schema := readSchema(t)

	// Every statement must survive re-application on startup.
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("Schema statement is not idempotent: %.60s", stmt)
		}
	}
}
