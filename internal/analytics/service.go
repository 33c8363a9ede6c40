// Package analytics computes the admin dashboard from one-shot collection reads.
package analytics

import (
	"context"
	"strings"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const uncategorized = "Other"

type collectionReader interface {
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetAllOrders(ctx context.Context) ([]models.Order, error)
}

// StatusCount is one bar of the orders-by-status chart.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CategoryCount is one point of the products-by-category chart.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Dashboard holds the admin KPIs. Buckets keep first-seen order.
type Dashboard struct {
	Products           int             `json:"products"`
	Orders             int             `json:"orders"`
	Revenue            decimal.Decimal `json:"revenue"`
	OrdersByStatus     []StatusCount   `json:"ordersByStatus"`
	ProductsByCategory []CategoryCount `json:"productsByCategory"`
}

// Service provides the admin dashboard.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	reader collectionReader
}

func NewService(reader collectionReader) (Service, error) {
	if reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection reader is required")
	}
	return &service{reader: reader}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		products []models.Product
		orders   []models.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.reader.GetAllProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.reader.GetAllOrders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Compute(products, orders), nil
}

// Compute builds the dashboard. Orders without a status count as Pending and
// products without a category as Other.
func Compute(products []models.Product, orders []models.Order) *Dashboard {
	d := &Dashboard{
		Products:           len(products),
		Orders:             len(orders),
		Revenue:            decimal.Zero,
		OrdersByStatus:     []StatusCount{},
		ProductsByCategory: []CategoryCount{},
	}

	statusIdx := map[string]int{}
	for _, o := range orders {
		d.Revenue = d.Revenue.Add(o.Total)
		status := string(o.Status.OrDefault())
		i, ok := statusIdx[status]
		if !ok {
			i = len(d.OrdersByStatus)
			statusIdx[status] = i
			d.OrdersByStatus = append(d.OrdersByStatus, StatusCount{Status: status})
		}
		d.OrdersByStatus[i].Count++
	}

	categoryIdx := map[string]int{}
	for _, p := range products {
		category := strings.TrimSpace(p.Category)
		if category == "" {
			category = uncategorized
		}
		i, ok := categoryIdx[category]
		if !ok {
			i = len(d.ProductsByCategory)
			categoryIdx[category] = i
			d.ProductsByCategory = append(d.ProductsByCategory, CategoryCount{Category: category})
		}
		d.ProductsByCategory[i].Count++
	}
	return d
}
