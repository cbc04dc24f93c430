package models

import "time"

// Event types exchanged over Kafka
const (
	EventPriceScraped      = "PRICE_SCRAPED"
	EventPriceRecorded     = "PRICE_RECORDED"
	EventHistoryBackfilled = "HISTORY_BACKFILLED"
)

// ScrapeEvent is published by the site scrapers after reading a product page
type ScrapeEvent struct {
	EventType string     `json:"event_type"`
	Source    string     `json:"source"`
	Data      ScrapeData `json:"data"`
}

// ScrapeData carries the prices read from the page. Text sanitization
// happens in the scraper; values here are plain decimal strings.
type ScrapeData struct {
	ProductID            int     `json:"product_id"`
	PriceWithDiscount    *string `json:"price_with_discount,omitempty"`
	PriceWithoutDiscount *string `json:"price_without_discount,omitempty"`
	ScrapedAt            *string `json:"scraped_at,omitempty"`
}

// PriceEvent announces changes to stored price history
type PriceEvent struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	Observation *PriceObservation `json:"observation,omitempty"`
	Backfill    *BackfillSummary  `json:"backfill,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// BackfillSummary describes one completed history backfill run
type BackfillSummary struct {
	Horizon          time.Time `json:"horizon"`
	ProductsScanned  int       `json:"products_scanned"`
	ProductsSkipped  int       `json:"products_skipped"`
	RowsInserted     int       `json:"rows_inserted"`
	DatesAlreadyHeld int       `json:"dates_already_held"`
}
