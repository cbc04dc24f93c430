// Package pricing answers questions about stored price history: which
// observation was in effect on a date, which number to trust from an
// observation, and how much prices moved between two dates for a product,
// a category or the whole catalog.
//
// Everything here is read-only and safe for concurrent use. Results may be
// computed while a backfill is writing; no snapshot isolation is attempted.
package pricing
