package models

// Category groups products, e.g. "Dairy" or "Bakery"
type Category struct {
	ID          int    `json:"category_id"`
	Name        string `json:"category_name"`
	Description string `json:"description,omitempty"`
}
