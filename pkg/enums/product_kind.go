package enums

import "fmt"

// ProductKind classifies a menu product for kitchen routing and display.
type ProductKind string

const (
	ProductKindDish    ProductKind = "PRATO"
	ProductKindDrink   ProductKind = "BEBIDA"
	ProductKindDessert ProductKind = "SOBREMESA"
	ProductKindAddon   ProductKind = "ADICIONAL"
	ProductKindRetail  ProductKind = "REVENDA"
)

var validProductKinds = []ProductKind{
	ProductKindDish,
	ProductKindDrink,
	ProductKindDessert,
	ProductKindAddon,
	ProductKindRetail,
}

// String implements fmt.Stringer.
func (p ProductKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductKind.
func (p ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
