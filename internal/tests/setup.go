package tests

import (
	"context"
	"database/sql"
	"fmt"
)

// TruncateAll clears account and catalog tables for a clean test state.
func TruncateAll(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE one_time_passcodes, accounts, roles,
			purchase_order_items, purchase_orders, inventories, warehouses,
			product_variants, products, brands, categories
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
