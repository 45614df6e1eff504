package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID          gocql.UUID `json:"_id" db:"product_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       float64    `json:"price" db:"price"`
	Category    string     `json:"category" db:"category"`
	SubCategory string     `json:"subCategory" db:"sub_category"`
	Sizes       []string   `json:"sizes" db:"sizes"`
	Bestseller  bool       `json:"bestseller" db:"bestseller"`
	ImageURLs   []string   `json:"image" db:"image_urls"`
	Date        time.Time  `json:"date" db:"created_at"`
}
