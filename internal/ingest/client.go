package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/toppicks/bestseller-scraper/internal/models"
)

// Payload is the ingestion API's submission body. The server upserts the
// department by slug, the category by fullSlug and the product by ASIN, and
// swaps the category's current bestseller to this product.
type Payload struct {
	Department DepartmentPayload `json:"department"`
	Category   CategoryPayload   `json:"category"`
	Product    ProductPayload    `json:"product"`
}

type DepartmentPayload struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder *int   `json:"sortOrder,omitempty"`
}

type CategoryPayload struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	FullSlug string `json:"fullSlug"`
}

type ProductPayload struct {
	ASIN        string   `json:"asin"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	ImageURL    *string  `json:"imageUrl"`
	AmazonURL   string   `json:"amazonUrl"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"reviewCount"`
}

// Result is the single shape every submission outcome collapses to, so the
// orchestrator has exactly one failure branch.
type Result struct {
	Success bool
	Data    json.RawMessage
	Error   string
}

type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client submits scraped products to the admin ingestion API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient fails fast when the base URL or bearer token is missing; there
// is no point starting a scrape run that cannot deliver results.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ingestion base URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("ingestion API token is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "ingest"),
	}, nil
}

// NewPayload builds a submission body from a category and its scraped
// rank-1 product.
func NewPayload(category models.Category, product *models.ScrapedProduct) Payload {
	return Payload{
		Department: DepartmentPayload{
			Name: category.DepartmentName,
			Slug: category.DepartmentSlug,
		},
		Category: CategoryPayload{
			Name:     category.Name,
			Slug:     category.Slug,
			FullSlug: category.FullSlug,
		},
		Product: ProductPayload{
			ASIN:        product.ASIN,
			Name:        product.Name,
			Price:       product.Price,
			ImageURL:    product.ImageURL,
			AmazonURL:   product.AmazonURL,
			Rating:      product.Rating,
			ReviewCount: product.ReviewCount,
		},
	}
}

// SubmitProduct POSTs one payload. Transport failures and application-layer
// rejections both normalize to a failed Result; this method never panics and
// never returns an error.
func (c *Client) SubmitProduct(ctx context.Context, payload Payload) *Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Result{Error: fmt.Sprintf("failed to encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/products", bytes.NewReader(body))
	if err != nil {
		return &Result{Error: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("submission transport failure", "asin", payload.Product.ASIN, "error", err)
		return &Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := serverMessage(respBody, resp.StatusCode)
		c.logger.Warn("submission rejected",
			"asin", payload.Product.ASIN, "status", resp.StatusCode, "error", message)
		return &Result{Error: message}
	}

	c.logger.Info("product submitted",
		"asin", payload.Product.ASIN, "fullSlug", payload.Category.FullSlug)
	return &Result{Success: true, Data: respBody}
}

// serverMessage prefers the structured error body over a bare status code.
func serverMessage(body []byte, status int) string {
	var se serverError
	if err := json.Unmarshal(body, &se); err == nil {
		if se.Error != "" {
			return se.Error
		}
		if se.Message != "" {
			return se.Message
		}
	}
	return fmt.Sprintf("server returned status %d", status)
}
