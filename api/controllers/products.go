package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vistore-backend/api/responses"
	"github.com/angelmondragon/vistore-backend/api/validators"
	"github.com/angelmondragon/vistore-backend/internal/catalog"
	product "github.com/angelmondragon/vistore-backend/internal/products"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

const maxSearchLen = 100

// productCatalog is the storefront's view of the product list.
type productCatalog interface {
	Products() []models.Product
	Product(id string) (models.Product, bool)
	IsLive() bool
}

type productListResponse struct {
	Products   []product.ProductDTO `json:"products"`
	Total      int                  `json:"total"`
	Live       bool                 `json:"live"`
	Categories []string             `json:"categories"`
}

type productSectionsResponse struct {
	Trending    []product.ProductDTO `json:"trending"`
	NewArrivals []product.ProductDTO `json:"newArrivals"`
	MostBought  []product.ProductDTO `json:"mostBought"`
}

// ProductList serves the storefront grid with the q, category and sort query
// parameters applied.
func ProductList(c productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		sort, err := enums.ParseProductSort(strings.TrimSpace(query.Get("sort")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").WithDetails(map[string]any{"field": "sort"}))
			return
		}

		filtered := catalog.Filter(c.Products(), catalog.Query{
			Search:   validators.SanitizeString(query.Get("q"), maxSearchLen),
			Category: validators.SanitizeString(query.Get("category"), maxSearchLen),
			Sort:     sort,
		})
		responses.WriteSuccess(w, productListResponse{
			Products:   product.NewProductDTOs(filtered),
			Total:      len(filtered),
			Live:       c.IsLive(),
			Categories: catalog.Categories(),
		})
	}
}

// ProductSections serves the trending, new-arrival and most-bought rails.
func ProductSections(c productCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := c.Products()
		responses.WriteSuccess(w, productSectionsResponse{
			Trending:    product.NewProductDTOs(catalog.Trending(list)),
			NewArrivals: product.NewProductDTOs(catalog.NewArrivals(list)),
			MostBought:  product.NewProductDTOs(catalog.MostBought(list)),
		})
	}
}

func ProductDetail(c productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := c.Product(strings.TrimSpace(chi.URLParam(r, "productId")))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, product.NewProductDTO(p))
	}
}

func AdminProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload product.CreateProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.CreateProduct(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AdminProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload product.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateProduct(r.Context(), chi.URLParam(r, "productId"), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AdminProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteProduct(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AdminProductSeed(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.SeedDefaults(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
