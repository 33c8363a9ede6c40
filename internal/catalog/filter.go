package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
)

// AllCategories disables the category filter.
const AllCategories = "All"

const sectionSize = 4

var storefrontCategories = []string{AllCategories, "Electronics", "Fashion", "Gaming", "Kitchen", "Furniture"}

// Categories lists the category choices shown on the storefront.
func Categories() []string {
	return slices.Clone(storefrontCategories)
}

// Query narrows and orders the storefront grid.
type Query struct {
	Search   string
	Category string
	Sort     enums.ProductSort
}

// Filter applies q to list and returns a new slice. Search matches name or
// category without regard to case. Featured keeps the input order and every
// other sort is stable.
func Filter(list []models.Product, q Query) []models.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := strings.TrimSpace(q.Category)
	if strings.EqualFold(category, AllCategories) {
		category = ""
	}

	out := make([]models.Product, 0, len(list))
	for _, p := range list {
		if category != "" && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Category), search) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case enums.ProductSortPriceAsc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case enums.ProductSortPriceDesc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	case enums.ProductSortRating:
		slices.SortStableFunc(out, func(a, b models.Product) int { return cmp.Compare(b.Rating, a.Rating) })
	case enums.ProductSortNewest:
		slices.SortStableFunc(out, newestFirst)
	}
	return out
}

// products without a creation time sort last
func newestFirst(a, b models.Product) int {
	switch {
	case a.CreatedAt == nil && b.CreatedAt == nil:
		return 0
	case a.CreatedAt == nil:
		return 1
	case b.CreatedAt == nil:
		return -1
	}
	return b.CreatedAt.Compare(*a.CreatedAt)
}

// Trending returns the first four trending products.
func Trending(list []models.Product) []models.Product {
	return firstN(list, sectionSize, func(p models.Product) bool { return p.IsTrending })
}

// NewArrivals returns the first four products flagged new.
func NewArrivals(list []models.Product) []models.Product {
	return firstN(list, sectionSize, func(p models.Product) bool { return p.IsNew })
}

// MostBought returns the first four products.
func MostBought(list []models.Product) []models.Product {
	return firstN(list, sectionSize, func(models.Product) bool { return true })
}

func firstN(list []models.Product, n int, keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, n)
	for _, p := range list {
		if len(out) == n {
			break
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
