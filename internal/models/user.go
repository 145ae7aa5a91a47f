package models

// Address is a saved delivery destination on a customer account.
type Address struct {
	ID        string `bson:"id" json:"id"`
	Label     string `bson:"label" json:"label"`
	Address   string `bson:"address" json:"address"`
	City      string `bson:"city" json:"city"`
	Notes     string `bson:"notes,omitempty" json:"notes,omitempty"`
	IsDefault bool   `bson:"is_default" json:"isDefault"`
}
