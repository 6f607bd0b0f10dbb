package wc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "ck_test", "cs_test", 5*time.Second)
}

func TestClient_FindProductsBySKU(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/v3/products" {
			t.Errorf("path = %q, want /wp-json/wc/v3/products", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sku") != "ABC-1" {
			t.Errorf("sku param = %q, want %q", q.Get("sku"), "ABC-1")
		}
		if q.Get("consumer_key") != "ck_test" || q.Get("consumer_secret") != "cs_test" {
			t.Error("credentials missing from query")
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 42, "sku": "ABC-1", "name": "Widget", "regular_price": "19.99"},
		})
	})

	products, err := client.FindProductsBySKU(context.Background(), "ABC-1")
	if err != nil {
		t.Fatalf("FindProductsBySKU() error = %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	p := products[0]
	if p.ID != 42 || p.SKU != "ABC-1" {
		t.Errorf("product = {ID:%d SKU:%q}, want {ID:42 SKU:ABC-1}", p.ID, p.SKU)
	}
	if got := p.Scalar("regular_price"); got != "19.99" {
		t.Errorf("Scalar(regular_price) = %q, want %q", got, "19.99")
	}
}

func TestClient_FindProductsBySKU_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 500), http.StatusUnauthorized)
	})

	_, err := client.FindProductsBySKU(context.Background(), "ABC-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusUnauthorized)
	}
	if len(apiErr.Body) > maxErrorBody {
		t.Errorf("Body length = %d, want truncated to %d", len(apiErr.Body), maxErrorBody)
	}
}

func TestClient_FindProductsBySKU_UndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance page</html>"))
	})

	_, err := client.FindProductsBySKU(context.Background(), "ABC-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError for undecodable body", err)
	}
}

func TestClient_UpdateProduct(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/wp-json/wc/v3/products/42" {
			t.Errorf("path = %q, want /wp-json/wc/v3/products/42", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id": 42}`))
	})

	err := client.UpdateProduct(context.Background(), 42, map[string]any{"regular_price": "25.00"})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if gotBody["regular_price"] != "25.00" {
		t.Errorf("payload regular_price = %v, want %q", gotBody["regular_price"], "25.00")
	}
}

func TestClient_UpdateProduct_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"woocommerce_rest_invalid_id"}`, http.StatusBadRequest)
	})

	err := client.UpdateProduct(context.Background(), 42, map[string]any{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusBadRequest)
	}
}

func TestClient_ListCategories_Pagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "3" || q.Get("per_page") != "100" {
			t.Errorf("pagination = page %s per_page %s, want page 3 per_page 100",
				q.Get("page"), q.Get("per_page"))
		}
		json.NewEncoder(w).Encode([]Term{{ID: 7, Name: "Shirts"}})
	})

	terms, err := client.ListCategories(context.Background(), 3, PageSize)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(terms) != 1 || terms[0].Name != "Shirts" {
		t.Errorf("terms = %v, want [{7 Shirts}]", terms)
	}
}

func TestProduct_UnmarshalSplitsTypedAndScalarFields(t *testing.T) {
	raw := `{
		"id": 9, "sku": "S-9", "name": "Thing", "price": "5",
		"categories": [{"id": 1, "name": "A"}],
		"tags": [],
		"attributes": [{"name": "Color", "options": ["Red"], "visible": true}],
		"on_sale": false
	}`
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if p.ID != 9 || p.SKU != "S-9" {
		t.Errorf("typed fields = {%d %s}, want {9 S-9}", p.ID, p.SKU)
	}
	if len(p.Categories) != 1 || p.Categories[0].Name != "A" {
		t.Errorf("Categories = %v, want [{1 A}]", p.Categories)
	}
	if got := p.Scalar("name"); got != "Thing" {
		t.Errorf("Scalar(name) = %q, want %q", got, "Thing")
	}
	if got := p.Scalar("on_sale"); got != "false" {
		t.Errorf("Scalar(on_sale) = %q, want %q", got, "false")
	}
	if got := p.Scalar("absent"); got != "" {
		t.Errorf("Scalar(absent) = %q, want empty", got)
	}
	if _, ok := p.Fields["categories"]; ok {
		t.Error("categories leaked into Fields")
	}
}
