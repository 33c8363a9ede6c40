package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vistore-backend/api/controllers"
	"github.com/angelmondragon/vistore-backend/internal/analytics"
	"github.com/angelmondragon/vistore-backend/internal/cart"
	"github.com/angelmondragon/vistore-backend/internal/catalog"
	"github.com/angelmondragon/vistore-backend/internal/orders"
	product "github.com/angelmondragon/vistore-backend/internal/products"
	"github.com/angelmondragon/vistore-backend/internal/settings"
	"github.com/angelmondragon/vistore-backend/internal/users"
	pkgAuth "github.com/angelmondragon/vistore-backend/pkg/auth"
	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/angelmondragon/vistore-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

var testJWT = config.JWTConfig{
	Secret:                 "router-secret",
	Issuer:                 "vistore-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "dev", Port: "8080"},
		JWT:     testJWT,
		Cart:    config.CartConfig{Store: config.CartStoreMemory, KeyPrefix: "vi-store", WriteTimeout: time.Second, CookieName: "vi_session"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}
}

type routerFixture struct {
	handler  http.Handler
	products product.Service
	carts    *cart.Registry
}

func newRouterFixture(t *testing.T, readiness map[string]controllers.Pinger) routerFixture {
	t.Helper()
	conn := dbtest.Open(t).DB()
	logg := logger.Nop()
	feed := changefeed.NewMemory()
	t.Cleanup(func() { _ = feed.Close() })

	productRepo := product.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	mirror, err := catalog.NewMirror(catalog.Options{Feed: feed, Products: productRepo, Orders: orderRepo, Logger: logg})
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	t.Cleanup(mirror.Close)
	live := catalog.NewLiveCatalog(mirror, product.DefaultProducts(), logg)

	productSvc, err := product.NewService(product.ServiceParams{Repo: productRepo, Publisher: feed, Logger: logg})
	if err != nil {
		t.Fatalf("product service: %v", err)
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{Repo: orderRepo, Products: live, Users: userRepo, Publisher: feed, Logger: logg})
	if err != nil {
		t.Fatalf("order service: %v", err)
	}
	settingsSvc, err := settings.NewService(settings.NewRepository(conn), feed, logg)
	if err != nil {
		t.Fatalf("settings service: %v", err)
	}
	analyticsSvc, err := analytics.NewService(mirror)
	if err != nil {
		t.Fatalf("analytics service: %v", err)
	}
	userSvc, err := users.NewService(userRepo)
	if err != nil {
		t.Fatalf("users service: %v", err)
	}

	cfg := testConfig()
	registry, err := cart.NewRegistry(cart.RegistryParams{Config: cfg.Cart, Slot: cart.NewMemorySlot(), Logger: logg})
	if err != nil {
		t.Fatalf("cart registry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	reg := prometheus.NewRegistry()
	handler := NewRouter(Params{
		Config:    cfg,
		Logger:    logg,
		Gatherer:  reg,
		HTTP:      metrics.NewHTTPMetrics(reg),
		Readiness: readiness,
		Sessions:  stubSessions{},
		Catalog:   live,
		Mirror:    mirror,
		Carts:     registry,
		Products:  productSvc,
		Orders:    orderSvc,
		Settings:  settingsSvc,
		Analytics: analyticsSvc,
		Users:     userSvc,
	})
	return routerFixture{handler: handler, products: productSvc, carts: registry}
}

func mintToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(h http.Handler, method, path, body string, headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealthRoutes(t *testing.T) {
	f := newRouterFixture(t, map[string]controllers.Pinger{"db": stubPinger{}})

	if rec := serve(f.handler, http.MethodGet, "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	if rec := serve(f.handler, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestReadyFailsWhenDependencyDown(t *testing.T) {
	f := newRouterFixture(t, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("connection refused")}})

	rec := serve(f.handler, http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposesHTTPSeries(t *testing.T) {
	f := newRouterFixture(t, nil)
	serve(f.handler, http.MethodGet, "/health/live", "", nil)

	rec := serve(f.handler, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/health/live") {
		t.Fatalf("expected the live route in the scrape output")
	}
}

func TestProductListServesSeedBeforeFeedConnects(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := serve(f.handler, http.MethodGet, "/api/v1/products?sort=price-low", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Products []product.ProductDTO `json:"products"`
		Total    int                  `json:"total"`
		Live     bool                 `json:"live"`
	}
	decodeData(t, rec, &body)
	if body.Live {
		t.Fatalf("expected the seed list before the first snapshot")
	}
	if body.Total != len(product.DefaultProducts()) || len(body.Products) != body.Total {
		t.Fatalf("expected %d seed products, got %d", len(product.DefaultProducts()), body.Total)
	}
	for i := 1; i < len(body.Products); i++ {
		if body.Products[i].Price.LessThan(body.Products[i-1].Price) {
			t.Fatalf("products not sorted by ascending price at %d", i)
		}
	}
}

func TestProductListRejectsUnknownSort(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := serve(f.handler, http.MethodGet, "/api/v1/products?sort=cheapest", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProductDetail(t *testing.T) {
	f := newRouterFixture(t, nil)

	if rec := serve(f.handler, http.MethodGet, "/api/v1/products/1", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := serve(f.handler, http.MethodGet, "/api/v1/products/unknown", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newRouterFixture(t, nil)

	if rec := serve(f.handler, http.MethodGet, "/api/admin/v1/orders", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}

	customer := map[string]string{"Authorization": "Bearer " + mintToken(t, enums.UserRoleCustomer)}
	if rec := serve(f.handler, http.MethodGet, "/api/admin/v1/orders", "", customer); rec.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", rec.Code)
	}

	admin := map[string]string{"Authorization": "Bearer " + mintToken(t, enums.UserRoleAdmin)}
	if rec := serve(f.handler, http.MethodGet, "/api/admin/v1/orders", "", admin); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAdminCreateProductPersists(t *testing.T) {
	f := newRouterFixture(t, nil)
	admin := map[string]string{"Authorization": "Bearer " + mintToken(t, enums.UserRoleAdmin)}

	rec := serve(f.handler, http.MethodPost, "/api/admin/v1/products", `{"name":"Desk Lamp","price":"24.50","category":"Home"}`, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	list, err := f.products.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Desk Lamp" {
		t.Fatalf("expected the created product to be stored, got %+v", list)
	}
}

func TestCartFlowKeepsSessionCookie(t *testing.T) {
	f := newRouterFixture(t, nil)

	first := serve(f.handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"1","quantity":2}`, nil)
	if first.Code != http.StatusOK && first.Code != http.StatusCreated {
		t.Fatalf("add: unexpected status %d (%s)", first.Code, first.Body.String())
	}
	var sessionCookie *http.Cookie
	for _, c := range first.Result().Cookies() {
		if c.Name == "vi_session" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("expected a cart session cookie")
	}

	rec := serve(f.handler, http.MethodGet, "/api/v1/cart", "", nil, sessionCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch: expected 200, got %d", rec.Code)
	}
	var body struct {
		Items []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		ItemCount int `json:"itemCount"`
	}
	decodeData(t, rec, &body)
	if len(body.Items) != 1 || body.Items[0].ID != "1" || body.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart contents: %+v", body.Items)
	}
	if body.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", body.ItemCount)
	}

	other := serve(f.handler, http.MethodGet, "/api/v1/cart", "", nil)
	decodeData(t, other, &body)
	if len(body.Items) != 0 {
		t.Fatalf("expected a fresh session to start with an empty cart")
	}
}

func TestCartReadsForNewSessionDoNotLoadStores(t *testing.T) {
	f := newRouterFixture(t, nil)

	for _, path := range []string{"/api/v1/cart", "/api/v1/wishlist"} {
		rec := serve(f.handler, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		var body struct {
			Items []json.RawMessage `json:"items"`
		}
		decodeData(t, rec, &body)
		if body.Items == nil || len(body.Items) != 0 {
			t.Fatalf("%s: expected an empty item list, got %s", path, rec.Body.String())
		}
	}
	if n := f.carts.Len(); n != 0 {
		t.Fatalf("expected no cart stores held, got %d", n)
	}

	serve(f.handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"1"}`, nil)
	if n := f.carts.Len(); n != 1 {
		t.Fatalf("expected a mutation to load one store, got %d", n)
	}
}

func TestCartAddRejectsUnknownProduct(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := serve(f.handler, http.MethodPost, "/api/v1/cart/items", `{"productId":"missing"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBuyNowAsGuest(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := serve(f.handler, http.MethodPost, "/api/v1/orders/buy-now", `{"productId":"1"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var order orders.OrderDTO
	decodeData(t, rec, &order)
	if order.Status != enums.OrderStatusPending || len(order.Items) != 1 {
		t.Fatalf("unexpected order: %+v", order)
	}
}
