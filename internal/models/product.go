package models

// Product represents a tracked grocery item and the shop page it is scraped from
type Product struct {
	ID         int    `json:"product_id"`
	Name       string `json:"product_name"`
	CategoryID int    `json:"category_id"`
	Link       string `json:"product_link"`
}
