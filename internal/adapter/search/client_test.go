package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/adapter/search"
	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/proxy"
	"github.com/user/listing-pipeline/internal/repository"
)

func testSource(searchURL string) entity.Source {
	return entity.Source{
		Website:         "metrocuadrado.com",
		SearchURL:       searchURL,
		APIKey:          "secret",
		DetailBaseURL:   "https://metrocuadrado.com",
		City:            "bogotá",
		PropertyType:    "apartamento",
		Operations:      []entity.OperationType{entity.OperationSale, entity.OperationRent},
		OperationParams: map[entity.OperationType]string{entity.OperationSale: "venta", entity.OperationRent: "arriendo"},
	}
}

func newClient(retries int) *search.Client {
	return search.NewClient(search.Config{RPS: 100, MaxRetries: retries, BaseBackoff: time.Millisecond},
		proxy.NewManager(nil, []string{"test-agent"}), zap.NewNop())
}

func TestClient_SearchPage_SendsQueryAndHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("realEstateBusinessList") != "arriendo" || q.Get("from") != "100" || q.Get("size") != "50" ||
			q.Get("realEstateTypeList") != "apartamento" || q.Get("city") != "bogotá" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Api-Key") != "secret" || r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected headers: %v", r.Header)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalHits": 120,
			"results": []map[string]any{
				{"link": "/inmueble/arriendo-apartamento-bogota/1-M1", "midinmueble": "1-M1"},
				{"link": "/inmueble/arriendo-apartamento-bogota/2-M2", "midinmueble": 22},
				{"midinmueble": "no-link"},
			},
		})
	}))
	defer ts.Close()

	page, err := newClient(0).SearchPage(context.Background(), entity.SearchQuery{
		Source: testSource(ts.URL), Operation: entity.OperationRent, Offset: 100, Size: 50,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if page.Total != 120 || len(page.Refs) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Refs[0].URL != "https://metrocuadrado.com/inmueble/arriendo-apartamento-bogota/1-M1" || page.Refs[0].Code != "1-M1" {
		t.Fatalf("unexpected ref: %+v", page.Refs[0])
	}
	if page.Refs[1].Code != "22" {
		t.Fatalf("numeric code not kept: %+v", page.Refs[1])
	}
}

func TestClient_SearchPage_BareArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"link": "/inmueble/a"}]`))
	}))
	defer ts.Close()

	page, err := newClient(0).SearchPage(context.Background(), entity.SearchQuery{
		Source: testSource(ts.URL), Operation: entity.OperationSale, Size: 50,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if page.Total != 0 || len(page.Refs) != 1 || page.Refs[0].Code != "" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestClient_SearchPage_RoutesThroughConfiguredProxy(t *testing.T) {
	var proxied atomic.Int32
	px := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Add(1)
		if r.URL.Host != "listings.example.test" {
			t.Errorf("proxy got request for %q", r.URL.Host)
		}
		_, _ = w.Write([]byte(`[{"link": "/inmueble/a"}]`))
	}))
	defer px.Close()

	client := search.NewClient(search.Config{RPS: 100, BaseBackoff: time.Millisecond},
		proxy.NewManager([]string{px.URL}, []string{"test-agent"}), zap.NewNop())
	page, err := client.SearchPage(context.Background(), entity.SearchQuery{
		Source: testSource("http://listings.example.test/search"), Operation: entity.OperationSale, Size: 50,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if proxied.Load() != 1 || len(page.Refs) != 1 {
		t.Fatalf("proxy hits = %d, refs = %d", proxied.Load(), len(page.Refs))
	}
}

func TestClient_SearchPage_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"totalHits": 1, "results": [{"link": "/x"}]}`))
	}))
	defer ts.Close()

	page, err := newClient(2).SearchPage(context.Background(), entity.SearchQuery{
		Source: testSource(ts.URL), Operation: entity.OperationSale, Size: 50,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(page.Refs) != 1 || atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("page=%+v hits=%d", page, hits)
	}
}

func TestClient_SearchPage_FailuresWrapSentinel(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) }},
		{"malformed", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(tc.handler)
			defer ts.Close()

			_, err := newClient(1).SearchPage(context.Background(), entity.SearchQuery{
				Source: testSource(ts.URL), Operation: entity.OperationSale, Size: 50,
			})
			if !errors.Is(err, repository.ErrDiscoveryPage) {
				t.Fatalf("got %v, want ErrDiscoveryPage", err)
			}
		})
	}
}

func TestBuildURL_UnknownOperation(t *testing.T) {
	src := testSource("https://example.com/search")
	delete(src.OperationParams, entity.OperationRent)
	if _, err := search.BuildURL(entity.SearchQuery{Source: src, Operation: entity.OperationRent}); err == nil {
		t.Fatalf("expected error")
	}
}
