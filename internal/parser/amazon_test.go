package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractASIN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
		found    bool
	}{
		{
			name:     "dp path",
			url:      "https://www.amazon.com/Some-Product/dp/B08N5WRWNW?ref=zg_bs",
			expected: "B08N5WRWNW",
			found:    true,
		},
		{
			name:     "gp product path",
			url:      "https://www.amazon.com/gp/product/B000123456/ref=foo",
			expected: "B000123456",
			found:    true,
		},
		{
			name:     "product path",
			url:      "https://www.amazon.com/product/b08n5wrwnw",
			expected: "B08N5WRWNW",
			found:    true,
		},
		{
			name:     "asin path",
			url:      "https://www.amazon.com/asin/B09ABCDE12",
			expected: "B09ABCDE12",
			found:    true,
		},
		{
			name:     "lowercase normalized to upper",
			url:      "/dp/b08n5wrwnw",
			expected: "B08N5WRWNW",
			found:    true,
		},
		{
			name:  "no pattern",
			url:   "https://www.amazon.com/gp/bestsellers/books",
			found: false,
		},
		{
			name:  "too short",
			url:   "https://www.amazon.com/dp/B08N5",
			found: false,
		},
		{
			name:  "empty",
			url:   "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asin, ok := ExtractASIN(tt.url)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, asin)
			} else {
				assert.Empty(t, asin)
			}
		})
	}
}

func TestCanonicalProductURL(t *testing.T) {
	assert.Equal(t,
		"https://www.amazon.com/dp/B08N5WRWNW",
		CanonicalProductURL("https://www.amazon.com", "B08N5WRWNW"),
	)
	assert.Equal(t,
		"https://www.amazon.com/dp/B08N5WRWNW",
		CanonicalProductURL("https://www.amazon.com/", "B08N5WRWNW"),
	)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"dollar price", "$29.99", floatPtr(29.99)},
		{"comma thousands", "$1,234.56", floatPtr(1234.56)},
		{"plain number", "29.99", floatPtr(29.99)},
		{"currency suffix", "29.99 USD", floatPtr(29.99)},
		{"empty", "", nil},
		{"garbage", "no price shown", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParsePrice(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.InDelta(t, *tt.expected, *result, 0.001)
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"out of five", "4.5 out of 5 stars", floatPtr(4.5)},
		{"rated prefix", "Rated 4.5", floatPtr(4.5)},
		{"integer rating", "5 stars", floatPtr(5)},
		{"no digits", "no ratings yet", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseRating(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.InDelta(t, *tt.expected, *result, 0.001)
		})
	}
}

func TestParseReviewCount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int
	}{
		{"comma grouped", "1,234", intPtr(1234)},
		{"thousands suffix", "1.2K", intPtr(1200)},
		{"millions suffix", "2.5M", intPtr(2500000)},
		{"lowercase suffix", "3k", intPtr(3000)},
		{"plain integer", "567", intPtr(567)},
		{"with label", "1,234 ratings", intPtr(1234)},
		{"unparsable", "none", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseReviewCount(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, *tt.expected, *result)
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "books-literature", Slugify("Books & Literature"))
	assert.Equal(t, "home-kitchen", Slugify("  Home, Kitchen  "))
	assert.Equal(t, "toys", Slugify("Toys"))
	assert.Equal(t, "", Slugify("&&&"))
}

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		linkText string
		expected string
	}{
		{
			name:     "zgbs segment",
			url:      "https://www.amazon.com/Best-Sellers-Books/zgbs/books/ref=zg_bs_nav_0",
			linkText: "Books",
			expected: "books",
		},
		{
			name:     "bestsellers segment",
			url:      "https://www.amazon.com/bestsellers/electronics",
			linkText: "Electronics",
			expected: "electronics",
		},
		{
			name:     "fallback to link text",
			url:      "https://www.amazon.com/b?node=283155",
			linkText: "Kindle Store",
			expected: "kindle-store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SlugFromURL(tt.url, tt.linkText))
		})
	}
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t,
		"https://www.amazon.com/zgbs/books",
		ResolveURL("https://www.amazon.com/gp/bestsellers", "/zgbs/books"),
	)
	assert.Equal(t,
		"https://other.example/x",
		ResolveURL("https://www.amazon.com", "https://other.example/x"),
	)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
