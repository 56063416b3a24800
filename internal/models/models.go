package models

// All returns every model managed by AutoMigrate
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&MarketplaceOrder{},
		&MarketplaceProduct{},
		&UsageCounter{},
		&BatchRequest{},
		&SyncHistory{},
	}
}
