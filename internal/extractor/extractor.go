package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/toppicks/bestseller-scraper/internal/browser"
	"github.com/toppicks/bestseller-scraper/internal/models"
	"github.com/toppicks/bestseller-scraper/internal/parser"
	"github.com/toppicks/bestseller-scraper/internal/ratelimit"
)

// ErrNoProduct means the page yielded no usable rank-1 product. This is the
// expected failure mode for layout drift and exhausted navigation retries;
// callers treat it as a per-category outcome, never as a run-level fault.
var ErrNoProduct = errors.New("no product found")

// cardStrategies locate the rank-1 product card. Ordered from the modern
// grid layout down to the legacy list layout; the first selector matching
// any element wins and later ones are not consulted.
var cardStrategies = []struct {
	name     string
	selector string
}{
	{"grid-root", "#gridItemRoot"},
	{"asin-index", `div[id^="p13n-asin-index-0"]`},
	{"faceout", ".p13n-sc-uncoverable-faceout"},
	{"zg-immersion", ".zg-item-immersion"},
	{"zg-legacy", ".zg-item"},
}

var (
	linkSelectors = []string{
		`a.a-link-normal[href*="/dp/"]`,
		`a[href*="/dp/"]`,
		`a[href*="/gp/product/"]`,
	}
	nameSelectors = []string{
		`div[class*="p13n-sc-css-line-clamp"]`,
		".p13n-sc-truncate",
		"span.zg-text-center-align",
		`a.a-link-normal span`,
	}
	priceSelectors = []string{
		`span[class*="p13n-sc-price"]`,
		".p13n-sc-price",
		".a-price .a-offscreen",
		"span.a-color-price",
	}
	ratingSelectors = []string{
		".a-icon-alt",
		`i[class*="a-icon-star"] span`,
	}
	reviewSelectors = []string{
		`a[href*="customerReviews"] span`,
		"span.a-size-small",
		"div.a-icon-row a.a-size-small",
	}
	imageSelectors = []string{
		"img[src]",
	}
)

// Extractor turns one category page into at most one ScrapedProduct.
type Extractor struct {
	session *browser.Session
	baseURL string
	settle  ratelimit.DelayFunc
	logger  *slog.Logger
}

func New(session *browser.Session, baseURL string, settle ratelimit.DelayFunc, logger *slog.Logger) *Extractor {
	return &Extractor{
		session: session,
		baseURL: baseURL,
		settle:  settle,
		logger:  logger.With("component", "extractor"),
	}
}

// Extract navigates to the category page and returns its rank-1 product.
// Navigation failures degrade to ErrNoProduct for this category.
func (e *Extractor) Extract(ctx context.Context, category models.Category) (*models.ScrapedProduct, error) {
	page, err := e.session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Context().Close()

	if !e.session.NavigateWithRetry(ctx, page, category.URL) {
		return nil, ErrNoProduct
	}

	if err := ratelimit.Sleep(ctx, e.settle); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		e.logger.Warn("failed to read category page", "fullSlug", category.FullSlug, "error", err)
		return nil, ErrNoProduct
	}

	product, err := e.ExtractFromHTML(html)
	if err != nil {
		return nil, err
	}

	e.logger.Info("extracted bestseller",
		"fullSlug", category.FullSlug,
		"asin", product.ASIN,
		"lowConfidence", product.LowConfidence,
	)
	return product, nil
}

// ExtractFromHTML runs the selector cascade over a page snapshot. Exposed
// separately so strategies are testable against fixture HTML without a
// browser.
func (e *Extractor) ExtractFromHTML(html string) (*models.ScrapedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	card, strategy := locateCard(doc)
	if card == nil {
		// Degraded path: any product-like anchor, partial data only. There
		// is no way to confirm this element is actually rank #1.
		return e.extractFallback(doc)
	}

	link, href := firstWithAttr(card, linkSelectors, "href")
	if link == nil {
		return nil, ErrNoProduct
	}

	asin, ok := parser.ExtractASIN(href)
	if !ok {
		return nil, ErrNoProduct
	}

	product := &models.ScrapedProduct{
		ASIN:      asin,
		Name:      extractName(card),
		AmazonURL: parser.CanonicalProductURL(e.baseURL, asin),
	}

	if sel := firstMatch(card, priceSelectors); sel != nil {
		product.Price = parser.ParsePrice(text(sel))
	}
	if sel := firstMatch(card, ratingSelectors); sel != nil {
		product.Rating = parser.ParseRating(text(sel))
	}
	if sel := firstMatch(card, reviewSelectors); sel != nil {
		product.ReviewCount = parser.ParseReviewCount(text(sel))
	}
	if img, src := firstWithAttr(card, imageSelectors, "src"); img != nil && src != "" {
		product.ImageURL = &src
	}

	e.logger.Debug("card matched", "strategy", strategy, "asin", asin)
	return product, nil
}

func (e *Extractor) extractFallback(doc *goquery.Document) (*models.ScrapedProduct, error) {
	anchor := doc.Find(`a[href*="/dp/"]`).First()
	if anchor.Length() == 0 {
		return nil, ErrNoProduct
	}

	href, _ := anchor.Attr("href")
	asin, ok := parser.ExtractASIN(href)
	if !ok {
		return nil, ErrNoProduct
	}

	e.logger.Warn("card strategies exhausted, using permissive anchor fallback", "asin", asin)
	return &models.ScrapedProduct{
		ASIN:          asin,
		Name:          text(anchor),
		AmazonURL:     parser.CanonicalProductURL(e.baseURL, asin),
		LowConfidence: true,
	}, nil
}

// Enrich fetches the product detail page for richer fields. Supplementary
// and non-blocking: any failure returns the original record unchanged.
func (e *Extractor) Enrich(ctx context.Context, product *models.ScrapedProduct) *models.ScrapedProduct {
	page, err := e.session.NewPage()
	if err != nil {
		e.logger.Warn("enrichment skipped", "asin", product.ASIN, "error", err)
		return product
	}
	defer page.Context().Close()

	if !e.session.NavigateWithRetry(ctx, page, product.AmazonURL) {
		return product
	}
	if err := ratelimit.Sleep(ctx, e.settle); err != nil {
		return product
	}

	html, err := page.Content()
	if err != nil {
		return product
	}

	enriched := *product
	e.enrichFromHTML(html, &enriched)
	return &enriched
}

func (e *Extractor) enrichFromHTML(html string, product *models.ScrapedProduct) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	if title := text(doc.Find("#productTitle").First()); title != "" {
		product.Name = title
	}
	if product.Price == nil {
		for _, selector := range []string{".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice"} {
			if price := parser.ParsePrice(text(doc.Find(selector).First())); price != nil {
				product.Price = price
				break
			}
		}
	}
	if product.Rating == nil {
		product.Rating = parser.ParseRating(text(doc.Find("span.a-icon-alt").First()))
	}
	if product.ReviewCount == nil {
		product.ReviewCount = parser.ParseReviewCount(text(doc.Find("#acrCustomerReviewText").First()))
	}
	if product.ImageURL == nil {
		if src, ok := doc.Find("#landingImage").First().Attr("src"); ok && src != "" {
			product.ImageURL = &src
		}
	}
}

func locateCard(doc *goquery.Document) (*goquery.Selection, string) {
	for _, strategy := range cardStrategies {
		sel := doc.Find(strategy.selector)
		if sel.Length() > 0 {
			return sel.First(), strategy.name
		}
	}
	return nil, ""
}

func extractName(card *goquery.Selection) string {
	for _, selector := range nameSelectors {
		if name := text(card.Find(selector).First()); name != "" {
			return name
		}
	}
	// Image alt text is the last resort for grid layouts that render the
	// title as an attribute only.
	if alt, ok := card.Find("img[alt]").First().Attr("alt"); ok {
		return strings.TrimSpace(alt)
	}
	return ""
}

func firstMatch(card *goquery.Selection, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		sel := card.Find(selector)
		if sel.Length() > 0 {
			return sel.First()
		}
	}
	return nil
}

func firstWithAttr(card *goquery.Selection, selectors []string, attr string) (*goquery.Selection, string) {
	for _, selector := range selectors {
		sel := card.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if value, ok := sel.Attr(attr); ok && value != "" {
			return sel, value
		}
	}
	return nil, ""
}

func text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}
