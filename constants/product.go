package constants

import "strings"

// Product is the fuel type printed on a bill.
type Product string

const (
	Petrol Product = "Petrol"
	Diesel Product = "Diesel"
)

// CanonicalProduct maps free-form model output onto the product enum.
// Returns ok=false when the label matches neither fuel type; the caller
// keeps an empty value in that case rather than guessing.
func CanonicalProduct(label string) (Product, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	switch {
	case s == "":
		return "", false
	case strings.Contains(s, "diesel"):
		return Diesel, true
	case strings.Contains(s, "petrol") || strings.Contains(s, "gasoline") || strings.Contains(s, "ms "):
		return Petrol, true
	default:
		return "", false
	}
}
