package web

import "fmt"

// Price formats an amount in rand, e.g. R19.99.
func Price(v float64) string {
	return fmt.Sprintf("R%.2f", v)
}

// ItemName is the display name of an item; the catalog carries no titles.
func ItemName(id string) string {
	return "Item " + id
}
