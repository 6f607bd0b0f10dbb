// Package wc is a minimal WooCommerce REST API client covering the calls the
// sync and export pipelines need: lookup-by-SKU, update-by-id and paginated
// listing of products, categories and tags.
//
// Authentication is by consumer key/secret query parameters; credential
// management itself lives outside this package.
package wc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PageSize is the page size used for every paginated listing walk.
const PageSize = 100

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 200

const apiBase = "/wp-json/wc/v3"

// Client calls the WooCommerce REST API of a single store.
type Client struct {
	http   *http.Client
	base   string
	key    string
	secret string
}

// New creates a client for the store at baseURL.
func New(baseURL, consumerKey, consumerSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		base:   strings.TrimRight(baseURL, "/"),
		key:    consumerKey,
		secret: consumerSecret,
	}
}

// APIError is a non-2xx response from the store. Body is truncated to
// maxErrorBody bytes.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Body)
}

// url builds a request URL with authentication and extra query parameters.
func (c *Client) url(path string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("consumer_key", c.key)
	q.Set("consumer_secret", c.secret)
	return c.base + apiBase + path + "?" + q.Encode()
}

// get issues a GET and decodes the JSON response into out. Non-200 statuses
// and undecodable bodies both return an *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.key == "" || c.secret == "" {
		return errors.New("api credentials missing")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, params), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return &APIError{Status: res.StatusCode, Body: truncate(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		// An undecodable 200 is as useless as a failed call.
		return &APIError{Status: res.StatusCode, Body: truncate(body)}
	}
	return nil
}

// FindProductsBySKU looks up products by exact SKU. The result may hold
// zero, one or several matches; disambiguation is the caller's problem.
func (c *Client) FindProductsBySKU(ctx context.Context, sku string) ([]Product, error) {
	params := url.Values{}
	params.Set("sku", sku)

	var products []Product
	if err := c.get(ctx, "/products", params, &products); err != nil {
		return nil, fmt.Errorf("products.lookup sku %q: %w", sku, err)
	}
	return products, nil
}

// UpdateProduct sends a full update payload for the product with the given
// identifier. HTTP 200 and 201 are success; everything else is an *APIError.
func (c *Client) UpdateProduct(ctx context.Context, id int, payload map[string]any) error {
	if c.key == "" || c.secret == "" {
		return errors.New("api credentials missing")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("products.update %d: encode: %w", id, err)
	}

	u := c.url("/products/"+strconv.Itoa(id), nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("products.update %d: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("products.update %d: %w", id, &APIError{Status: res.StatusCode, Body: truncate(respBody)})
	}
	return nil
}

// ListProducts fetches one page of the full catalog.
func (c *Client) ListProducts(ctx context.Context, page, perPage int) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", pageParams(page, perPage), &products); err != nil {
		return nil, fmt.Errorf("products.list page %d: %w", page, err)
	}
	return products, nil
}

// ListCategories fetches one page of the category taxonomy.
func (c *Client) ListCategories(ctx context.Context, page, perPage int) ([]Term, error) {
	var terms []Term
	if err := c.get(ctx, "/products/categories", pageParams(page, perPage), &terms); err != nil {
		return nil, fmt.Errorf("categories.list page %d: %w", page, err)
	}
	return terms, nil
}

// ListTags fetches one page of the tag taxonomy.
func (c *Client) ListTags(ctx context.Context, page, perPage int) ([]Term, error) {
	var terms []Term
	if err := c.get(ctx, "/products/tags", pageParams(page, perPage), &terms); err != nil {
		return nil, fmt.Errorf("tags.list page %d: %w", page, err)
	}
	return terms, nil
}

func pageParams(page, perPage int) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	return params
}

func truncate(body []byte) string {
	s := string(body)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
