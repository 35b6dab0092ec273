package domain

import "time"

// ProductSpec is one hardware attribute of a laptop (cpu, ram, storage, ...).
type ProductSpec struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Product struct {
	ID            string
	Name          string
	Slug          string
	Brand         string
	Description   string
	PurchasePrice int64
	SalePrice     int64
	Quantity      int64
	Images        []string
	Specs         []ProductSpec
	RatingAvg     float64
	RatingCount   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Brand struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
