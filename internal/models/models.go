package models

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&StorageLocation{},
		&ProductVariant{},
		&CurrentInventory{},
		&InventoryLog{},
		&InventorySnapshot{},
		&InventoryEntry{},
	}
}
