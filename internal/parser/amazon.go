package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/toppicks/bestseller-scraper/internal/models"
)

var (
	// Ordered URL path patterns an ASIN can hide behind. Tried in order;
	// the first match wins.
	asinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/dp/([A-Za-z0-9]{10})(?:[/?]|$)`),
		regexp.MustCompile(`/gp/product/([A-Za-z0-9]{10})(?:[/?]|$)`),
		regexp.MustCompile(`/product/([A-Za-z0-9]{10})(?:[/?]|$)`),
		regexp.MustCompile(`/asin/([A-Za-z0-9]{10})(?:[/?]|$)`),
	}

	// Bestseller listing URLs carry the node slug after one of these
	// segments, e.g. /zgbs/books or /bestsellers/electronics.
	slugSegments = []*regexp.Regexp{
		regexp.MustCompile(`/zgbs/([a-zA-Z0-9-]+)`),
		regexp.MustCompile(`/bestsellers/([a-zA-Z0-9-]+)`),
	}

	ratingPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	reviewCountPattern = regexp.MustCompile(`([\d,.]+)\s*([KkMm])?`)
	nonSlugPattern     = regexp.MustCompile(`[^a-z0-9]+`)
	nonPricePattern    = regexp.MustCompile(`[^0-9.]`)
)

// ExtractASIN pulls a 10-character ASIN out of a product URL and normalizes
// it to upper case. Returns false when no known path pattern matches or the
// normalized candidate fails validation.
func ExtractASIN(rawURL string) (string, bool) {
	for _, pattern := range asinPatterns {
		matches := pattern.FindStringSubmatch(rawURL)
		if len(matches) < 2 {
			continue
		}
		asin := strings.ToUpper(matches[1])
		if models.ASINPattern.MatchString(asin) {
			return asin, true
		}
	}
	return "", false
}

// CanonicalProductURL builds the canonical detail-page URL for an ASIN,
// independent of whatever tracking URL was scraped.
func CanonicalProductURL(baseURL, asin string) string {
	return strings.TrimRight(baseURL, "/") + "/dp/" + asin
}

// ParsePrice normalizes a displayed price like "$1,234.56" to its numeric
// value. Absent or unparsable input yields nil.
func ParsePrice(text string) *float64 {
	cleaned := nonPricePattern.ReplaceAllString(text, "")
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

// ParseRating extracts the first decimal number from a rating label such as
// "4.5 out of 5 stars". Nil when no digits are present.
func ParseRating(text string) *float64 {
	match := ratingPattern.FindString(text)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

// ParseReviewCount handles plain comma-grouped counts ("1,234") as well as
// abbreviated ones ("1.2K", "2.5M", case-insensitive). Nil when unparsable.
func ParseReviewCount(text string) *int {
	matches := reviewCountPattern.FindStringSubmatch(text)
	if len(matches) < 2 || matches[1] == "" {
		return nil
	}

	number := strings.ReplaceAll(matches[1], ",", "")
	suffix := strings.ToUpper(matches[2])

	if suffix != "" {
		base, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return nil
		}
		multiplier := 1_000
		if suffix == "M" {
			multiplier = 1_000_000
		}
		count := int(base * float64(multiplier))
		return &count
	}

	if strings.Contains(number, ".") {
		// A bare decimal with no K/M suffix is not a count.
		number = strings.SplitN(number, ".", 2)[0]
	}
	count, err := strconv.Atoi(number)
	if err != nil {
		return nil
	}
	return &count
}

// Slugify derives a URL-safe identifier from display text.
func Slugify(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = nonSlugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SlugFromURL derives a stable slug from a bestseller listing URL, falling
// back to slugifying the anchor text when the URL carries no known segment.
func SlugFromURL(rawURL, linkText string) string {
	for _, pattern := range slugSegments {
		matches := pattern.FindStringSubmatch(rawURL)
		if len(matches) >= 2 {
			return strings.ToLower(matches[1])
		}
	}
	return Slugify(linkText)
}

// ResolveURL turns a possibly-relative href into an absolute URL against the
// page it was found on.
func ResolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
