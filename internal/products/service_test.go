package product

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	svc    Service
	repo   *Repository
	events <-chan changefeed.Event
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	repo := NewRepository(dbtest.Open(t).DB())
	feed := changefeed.NewMemory()
	t.Cleanup(func() { _ = feed.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Publisher: feed,
		Logger:    logger.Nop(),
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, events: events}
}

func nextEvent(t *testing.T, events <-chan changefeed.Event) changefeed.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no change event published")
		return changefeed.Event{}
	}
}

func assertNoEvent(t *testing.T, events <-chan changefeed.Event) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected change event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func decodeCreate(t *testing.T, payload string) CreateProductInput {
	t.Helper()
	var in CreateProductInput
	require.NoError(t, json.Unmarshal([]byte(payload), &in))
	return in
}

func TestNewServiceValidatesDeps(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Repo: &Repository{}})
	assert.Error(t, err)
}

func TestCreateProductCoercesNumbers(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	dto, err := f.svc.CreateProduct(ctx, decodeCreate(t, `{"name":" Lamp ","price":"abc","stock":"-3","category":"Home"}`))
	require.NoError(t, err)
	assert.Equal(t, "Lamp", dto.Name)
	assert.True(t, dto.Price.IsZero())
	assert.False(t, dto.InStock)
	assert.Zero(t, dto.Rating)
	assert.Zero(t, dto.ReviewCount)
	assert.Nil(t, dto.OriginalPrice)
	require.NotNil(t, dto.CreatedAt)
	assert.True(t, fixedNow.Equal(*dto.CreatedAt))

	ev := nextEvent(t, f.events)
	assert.Equal(t, changefeed.CollectionProducts, ev.Collection)
	assert.Equal(t, dto.ID, ev.ID)
	assert.Equal(t, changefeed.OpInsert, ev.Op)

	stored, found, err := f.repo.GetProduct(ctx, dto.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Home", stored.Category)
	assert.True(t, stored.Price.IsZero())
}

func TestCreateProductStockMarksInStock(t *testing.T) {
	f := newServiceFixture(t)

	dto, err := f.svc.CreateProduct(context.Background(), decodeCreate(t, `{"name":"Mug","price":12.5,"stock":4}`))
	require.NoError(t, err)
	assert.True(t, dto.InStock)
	assert.True(t, dto.Price.Equal(decimal.RequireFromString("12.5")))

	_, err = f.svc.CreateProduct(context.Background(), decodeCreate(t, `{"name":"  "}`))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProductPartial(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	dto, err := f.svc.CreateProduct(ctx, decodeCreate(t, `{"name":"Chair","price":"100","stock":1,"category":"Furniture"}`))
	require.NoError(t, err)
	nextEvent(t, f.events)

	var in UpdateProductInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Desk Chair","price":-5}`), &in))
	require.NoError(t, f.svc.UpdateProduct(ctx, dto.ID, in))

	ev := nextEvent(t, f.events)
	assert.Equal(t, changefeed.OpUpdate, ev.Op)

	stored, _, err := f.repo.GetProduct(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk Chair", stored.Name)
	assert.True(t, stored.Price.IsZero())
	assert.Equal(t, "Furniture", stored.Category)
	assert.True(t, stored.InStock)
}

func TestUpdateProductMissingIsNotFound(t *testing.T) {
	f := newServiceFixture(t)
	name := "Ghost"
	err := f.svc.UpdateProduct(context.Background(), "missing", UpdateProductInput{Name: &name})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assertNoEvent(t, f.events)
}

func TestDeleteProductIsNoOpWhenMissing(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	dto, err := f.svc.CreateProduct(ctx, decodeCreate(t, `{"name":"Lamp"}`))
	require.NoError(t, err)
	nextEvent(t, f.events)

	require.NoError(t, f.svc.DeleteProduct(ctx, dto.ID))
	assert.Equal(t, changefeed.OpDelete, nextEvent(t, f.events).Op)

	_, found, err := f.svc.GetProduct(ctx, dto.ID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, f.svc.DeleteProduct(ctx, dto.ID))
	assertNoEvent(t, f.events)
}

func TestSeedDefaultsIsIdempotentByName(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.CreateProduct(ctx, decodeCreate(t, `{"name":"Bluetooth Speaker","price":"10"}`))
	require.NoError(t, err)
	nextEvent(t, f.events)

	res, err := f.svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Added: 7, Skipped: 1}, res)
	nextEvent(t, f.events)

	res, err = f.svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Added: 0, Skipped: 8}, res)
	assertNoEvent(t, f.events)

	all, err := f.svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, changefeed.Event) error {
	return errors.New("broker down")
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	svc, err := NewService(ServiceParams{Repo: repo, Publisher: failingPublisher{}, Logger: logger.Nop()})
	require.NoError(t, err)

	dto, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "Lamp", Price: NewLooseNumber("5")})
	require.NoError(t, err)
	_, found, err := repo.GetProduct(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLooseNumber(t *testing.T) {
	cases := []struct {
		raw   string
		money string
		count int
	}{
		{`12.5`, "12.5", 12},
		{`"7"`, "7", 7},
		{`"abc"`, "0", 0},
		{`-4`, "0", 0},
		{`null`, "0", 0},
		{`true`, "0", 0},
	}
	for _, tc := range cases {
		var n LooseNumber
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &n), tc.raw)
		assert.True(t, n.IsSet())
		assert.True(t, n.Money().Equal(decimal.RequireFromString(tc.money)), tc.raw)
		assert.Equal(t, tc.count, n.Count(), tc.raw)
	}

	var absent LooseNumber
	assert.False(t, absent.IsSet())
	assert.Nil(t, absent.OptionalMoney())
}

func TestDefaultProductsAreFresh(t *testing.T) {
	a := DefaultProducts()
	require.Len(t, a, 8)
	a[0].Name = "changed"
	assert.Equal(t, "Wireless Bluetooth Headphones", DefaultProducts()[0].Name)

	ids := map[string]bool{}
	for _, p := range DefaultProducts() {
		ids[p.ID] = true
		assert.Contains(t, p.Image, "?w=400&h=400&fit=crop&crop=center")
	}
	assert.Len(t, ids, 8)
}

func TestRepositoryListIncludesRowsWithoutCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t).DB())
	legacy := &models.Product{ID: "legacy", Name: "Old", Price: decimal.NewFromInt(3), InStock: true}
	require.NoError(t, repo.CreateProducts(ctx, legacy))

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].CreatedAt)
	assert.True(t, all[0].Price.Equal(decimal.NewFromInt(3)))
}
