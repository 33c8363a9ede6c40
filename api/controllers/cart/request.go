package cart

// addItemRequest names a catalog product; price and name come from the catalog.
type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,notblank,max=100"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1,max=999"`
}

// updateQuantityRequest sets a line's quantity. Zero or less removes the line.
type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type toggleWishlistRequest struct {
	ProductID string `json:"productId" validate:"required,notblank,max=100"`
}
