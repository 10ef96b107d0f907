package models

import (
	"regexp"
	"time"
)

// ASINPattern is the canonical shape of a normalized Amazon product
// identifier. Extraction discards anything that does not match.
var ASINPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Department is a top-level taxonomy node on the source site. Departments
// are created during discovery and de-duplicated by slug.
type Department struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// Category is a node in the 1-3 level bestseller category tree. FullSlug
// (departmentSlug/slug) is the unique addressing key. Level is derived from
// DOM nesting and is advisory only.
type Category struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	URL            string `json:"url"`
	DepartmentName string `json:"departmentName"`
	DepartmentSlug string `json:"departmentSlug"`
	FullSlug       string `json:"fullSlug"`
	Level          int    `json:"level"`
}

// ScrapedProduct is the rank-1 product for one category at one point in
// time. ASIN is the only mandatory field; every numeric field may be absent
// at scrape time, which is a valid state, not an error.
type ScrapedProduct struct {
	ASIN        string   `json:"asin"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	ImageURL    *string  `json:"imageUrl"`
	AmazonURL   string   `json:"amazonUrl"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"reviewCount"`
	// LowConfidence marks results from the permissive fallback strategy,
	// which cannot confirm the element was actually rank #1.
	LowConfidence bool `json:"lowConfidence,omitempty"`
}

// ScrapeError records one failed category inside a run.
type ScrapeError struct {
	FullSlug   string    `json:"fullSlug"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ScraperState is the singleton checkpoint record. It is rewritten after
// every processed category so an interrupted run resumes at exactly the next
// unprocessed index.
type ScraperState struct {
	RunID               string        `json:"runId,omitempty"`
	LastRun             time.Time     `json:"lastRun"`
	CategoriesProcessed int           `json:"categoriesProcessed"`
	ProductsSubmitted   int           `json:"productsSubmitted"`
	Errors              []ScrapeError `json:"errors"`
	LastCategoryIndex   int           `json:"lastCategoryIndex"`
}
