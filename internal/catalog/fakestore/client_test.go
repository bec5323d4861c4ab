package fakestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/shopcore/pkg/logger"
)

const productsJSON = `[
  {"id":1,"title":"Backpack","price":109.95,"description":"bag","category":"men's clothing","image":"https://img/1.png","rating":{"rate":3.9,"count":120}},
  {"id":9,"title":"Hard Drive","price":64,"description":"disk","category":"electronics","image":"https://img/9.png","rating":{"rate":3.3,"count":203}}
]`

func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(productsJSON))
	})
	mux.HandleFunc("GET /products/categories", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`["electronics","men's clothing"]`))
	})
	mux.HandleFunc("GET /products/category/{category}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.PathValue("category") {
		case "men's clothing":
			w.Write([]byte(`[` + `{"id":1,"title":"Backpack","price":"109.95","category":"men's clothing"}` + `]`))
		case "broken":
			w.Write([]byte(`{"not":"a list"`))
		case "down":
			w.WriteHeader(http.StatusBadGateway)
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(`[]`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_GetAll(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	products, err := c.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "109.95", products[0].Price.String())
	assert.Equal(t, "64", products[1].Price.String())
	assert.Equal(t, 203, products[1].Rating.Count)
}

func TestClient_GetByCategoryEscapesPath(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	products, err := c.GetByCategory(context.Background(), "men's clothing")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Backpack", products[0].Title)
}

func TestClient_GetCategories(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	categories, err := c.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "men's clothing"}, categories)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	_, err := c.GetByCategory(context.Background(), "down")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "unexpected status 502 Bad Gateway", err.Error())
}

func TestClient_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	_, err := c.GetByCategory(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed response")
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv, hits := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	for range 5 {
		_, err := c.GetByCategory(context.Background(), "down")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.breaker.State())

	before := hits.Load()
	_, err := c.GetAll(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, hits.Load())
}

func TestClient_ClientErrorsKeepBreakerClosed(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.Discard())

	for range 10 {
		_, err := c.GetByCategory(context.Background(), "missing")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())

	products, err := c.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestClient_Unreachable(t *testing.T) {
	srv, _ := newTestServer(t)
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, logger.Discard())
	_, err := c.GetCategories(context.Background())
	require.Error(t, err)
}
