package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkind/crawler-service/internal/stores"
)

// fakeStore serves a two-category catalog: category A has two pages
// with one product each, category B repeats product 1 and adds an
// invalid product 3 without a price.
func fakeStore(t *testing.T) (*httptest.Server, func(path string) int) {
	t.Helper()

	var mu sync.Mutex
	hits := make(map[string]int)
	count := func(r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, `<html><body>
			<a class="cat" href="/cat/a">A</a>
			<a class="cat" href="/cat/b">B</a>
		</body></html>`)
	})
	mux.HandleFunc("/cat/a", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `<html><body><a class="prod" href="/p/2">P2</a></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
			<div class="pager"><a class="page">1</a><a class="page">2</a></div>
			<a class="prod" href="/p/1">P1</a>
		</body></html>`)
	})
	mux.HandleFunc("/cat/b", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, `<html><body>
			<a class="prod" href="/p/1">P1</a>
			<a class="prod" href="/p/3">P3</a>
		</body></html>`)
	})
	productPage := func(sku, price string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			count(r)
			fmt.Fprintf(w, `<html><body>
				<h1>Товар %s</h1>
				<a class="crumb">Главная</a><a class="crumb">Чай</a>
				<span class="sku">%s</span>
				<span class="price">%s</span>
				<span class="measure">/100 г</span>
			</body></html>`, sku, sku, price)
		}
	}
	mux.HandleFunc("/p/1", productPage("P-1", "100"))
	mux.HandleFunc("/p/2", productPage("P-2", "250,50"))
	mux.HandleFunc("/p/3", productPage("P-3", "")) // no price, dropped

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, func(path string) int {
		mu.Lock()
		defer mu.Unlock()
		return hits[path]
	}
}

func testProfile(baseURL string) stores.Profile {
	return stores.Profile{
		Selector:        "teststore",
		BaseURL:         baseURL + "/",
		CategoryLinks:   "a.cat",
		PaginationBlock: "div.pager",
		PaginationLinks: "a.page",
		PageParam:       "page",
		ProductLinks:    "a.prod",
		Name:            "h1",
		Breadcrumbs:     "a.crumb",
		SKU:             "span.sku",
		Price:           "span.price",
		AmountUnits:     "span.measure",
	}
}

func TestRunnerGetProducts(t *testing.T) {
	srv, hits := fakeStore(t)

	runner, err := NewRunner(NewFetcher(DefaultFetcherConfig()), testProfile(srv.URL), 42)
	require.NoError(t, err)

	products := runner.GetProducts(context.Background())

	require.Len(t, products, 2)
	skus := []string{products[0].SKU, products[1].SKU}
	sort.Strings(skus)
	assert.Equal(t, []string{"P-1", "P-2"}, skus)

	for _, p := range products {
		assert.Equal(t, 42, p.CrawlerID)
		assert.Equal(t, "Главная / Чай", p.Category)
		assert.Equal(t, 100.0, p.Amount)
		assert.Equal(t, "г", p.Units)
	}

	// Product 1 is linked from both categories but fetched once.
	assert.Equal(t, 1, hits("/p/1"))
	assert.Equal(t, 1, hits("/p/2"))
	assert.Equal(t, 1, hits("/p/3"))
}

func TestRunnerGetProduct(t *testing.T) {
	srv, _ := fakeStore(t)

	runner, err := NewRunner(NewFetcher(DefaultFetcherConfig()), testProfile(srv.URL), 7)
	require.NoError(t, err)

	products := runner.GetProduct(context.Background(), srv.URL+"/p/2")

	require.Len(t, products, 1)
	assert.Equal(t, "P-2", products[0].SKU)
	assert.Equal(t, 250.50, products[0].Price)
	assert.Equal(t, srv.URL+"/p/2", products[0].URL)
}

func TestRunnerInvalidProductDropped(t *testing.T) {
	srv, _ := fakeStore(t)

	runner, err := NewRunner(NewFetcher(DefaultFetcherConfig()), testProfile(srv.URL), 7)
	require.NoError(t, err)

	products := runner.GetProduct(context.Background(), srv.URL+"/p/3")
	assert.Empty(t, products)
}
