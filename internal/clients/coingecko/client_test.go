package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/bagz/internal/clientdata"
	"github.com/aristath/bagz/internal/config"
	testhelpers "github.com/aristath/bagz/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":50000,"market_cap":800,
   "price_change_percentage_24h":1.5,"price_change_percentage_7d_in_currency":-2.25,"price_change_percentage_30d_in_currency":null},
  {"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3000,"market_cap":200,
   "price_change_percentage_24h":null}
]`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *clientdata.Repository) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	db, cleanup := testhelpers.NewTestDB(t, "client_data")
	t.Cleanup(cleanup)
	repo := clientdata.NewRepository(db.Conn())

	client := NewClient(config.CoinGeckoConfig{
		BaseURL:         server.URL,
		APIKey:          "demo-key",
		VsCurrency:      "usd",
		CatalogPageSize: 2,
		Timeout:         2 * time.Second,
	}, repo, zerolog.Nop())
	return client, repo
}

func TestGetCatalog(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(marketsBody))
	}))

	entries, err := client.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bitcoin", entries[0].ID)
	assert.Equal(t, "Bitcoin", entries[0].Name)
	assert.Equal(t, float64(800), entries[0].MarketCap)

	// Fresh cache serves the second call
	_, err = client.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetCatalog_StaleFallback(t *testing.T) {
	var fail atomic.Bool
	client, repo := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(marketsBody))
	}))

	_, err := client.GetCatalog(context.Background())
	require.NoError(t, err)

	// Expire the cached entry
	_, err = repo.DeleteExpired(clientdata.TableCatalog)
	require.NoError(t, err)
	var cached []cachedCatalogEntry
	found, err := repo.Get(clientdata.TableCatalog, "usd:2", &cached)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, repo.Store(clientdata.TableCatalog, "usd:2", cached, -time.Minute))

	fail.Store(true)
	entries, err := client.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGetCatalog_FailureWithoutCache(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGetCatalog_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	}))

	_, err := client.GetCatalog(context.Background())
	require.Error(t, err)
}

func TestGetMarkets(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "24h,7d,30d", r.URL.Query().Get("price_change_percentage"))
		_, _ = w.Write([]byte(marketsBody))
	}))

	markets, err := client.GetMarkets(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, markets, 2)

	btc := markets[0]
	assert.Equal(t, float64(50000), btc.CurrentPrice)
	require.NotNil(t, btc.Pct24h)
	assert.Equal(t, 1.5, *btc.Pct24h)
	require.NotNil(t, btc.Pct7d)
	assert.Equal(t, -2.25, *btc.Pct7d)
	assert.Nil(t, btc.Pct30d)

	assert.Nil(t, markets[1].Pct24h)
}

func TestGetMarkets_EmptyIDsIssuesNoRequest(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	markets, err := client.GetMarkets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, markets)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGetMarkets_StaleFallback(t *testing.T) {
	var fail atomic.Bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(marketsBody))
	}))

	_, err := client.GetMarkets(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	fail.Store(true)
	markets, err := client.GetMarkets(context.Background(), []string{"bitcoin", "solana"})
	require.Error(t, err, "stale rows are reported as a failed fetch")
	require.Len(t, markets, 1)
	assert.Equal(t, "bitcoin", markets[0].ID)

	markets, err = client.GetMarkets(context.Background(), []string{"solana"})
	require.Error(t, err)
	assert.Empty(t, markets)
}

func TestGetMarkets_FailedPageKeepsOtherPages(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) > 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(marketsBody))
	}))

	ids := []string{"bitcoin", "ethereum"}
	for i := len(ids); i < maxIDsPerRequest; i++ {
		ids = append(ids, fmt.Sprintf("coin-%d", i))
	}
	ids = append(ids, "solana")

	markets, err := client.GetMarkets(context.Background(), ids)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 251")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	require.Len(t, markets, 2, "rows from the page that succeeded are returned")
	assert.Equal(t, "bitcoin", markets[0].ID)
	assert.Equal(t, "ethereum", markets[1].ID)
}

func TestGetLogo(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/coins/bitcoin":
			assert.Equal(t, "false", r.URL.Query().Get("tickers"))
			_, _ = w.Write([]byte(`{"id":"bitcoin","image":{"thumb":"t.png","small":"https://img/btc-small.png","large":"l.png"}}`))
		case "/coins/noimage":
			_, _ = w.Write([]byte(`{"id":"noimage"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	logo, err := client.GetLogo(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "https://img/btc-small.png", logo.URL)

	// Second lookup is served from the cache
	_, err = client.GetLogo(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = client.GetLogo(context.Background(), "noimage")
	require.Error(t, err)

	_, err = client.GetLogo(context.Background(), "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestGetLogo_StaleFallback(t *testing.T) {
	client, repo := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	require.NoError(t, repo.Store(clientdata.TableLogos, "bitcoin", cachedLogo{URL: "https://img/old.png"}, -time.Hour))

	logo, err := client.GetLogo(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "https://img/old.png", logo.URL)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(config.CoinGeckoConfig{BaseURL: "http://example.test/"}, nil, zerolog.Nop())
	assert.Equal(t, "http://example.test", client.baseURL)
	assert.Equal(t, "usd", client.vsCurrency)
	assert.Equal(t, 500, client.pageSize)
	assert.Equal(t, 15*time.Second, client.client.Timeout)
}
