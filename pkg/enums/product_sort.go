package enums

import "fmt"

// ProductSort selects the storefront grid ordering.
type ProductSort string

const (
	ProductSortFeatured  ProductSort = "featured"
	ProductSortPriceAsc  ProductSort = "price-asc"
	ProductSortPriceDesc ProductSort = "price-desc"
	ProductSortRating    ProductSort = "rating"
	ProductSortNewest    ProductSort = "newest"
)

var validProductSorts = []ProductSort{
	ProductSortFeatured,
	ProductSortPriceAsc,
	ProductSortPriceDesc,
	ProductSortRating,
	ProductSortNewest,
}

// String implements fmt.Stringer.
func (s ProductSort) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductSort.
func (s ProductSort) IsValid() bool {
	for _, candidate := range validProductSorts {
		if candidate == s {
			return true
		}
	}
	return false
}

// storefront select values from the first catalog page
var productSortAliases = map[string]ProductSort{
	"price-low":  ProductSortPriceAsc,
	"price-high": ProductSortPriceDesc,
	"popularity": ProductSortRating,
}

// ParseProductSort converts raw input into a ProductSort; empty means featured.
func ParseProductSort(value string) (ProductSort, error) {
	if value == "" {
		return ProductSortFeatured, nil
	}
	if alias, ok := productSortAliases[value]; ok {
		return alias, nil
	}
	for _, candidate := range validProductSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort %q", value)
}
