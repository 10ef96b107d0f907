package extractor

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return New(nil, "https://www.amazon.com", nil, slog.Default())
}

const gridFixture = `<!DOCTYPE html>
<html><body>
<div id="gridItemRoot">
  <a class="a-link-normal" href="/Dutch-Oven-Cookbook/dp/B08N5WRWNW/ref=zg_bs_g_books_sccl_1">
    <div class="p13n-sc-css-line-clamp-3">The Dutch Oven Cookbook</div>
  </a>
  <img src="https://images.example.com/I/81abc.jpg" alt="The Dutch Oven Cookbook"/>
  <span class="a-icon-alt">4.7 out of 5 stars</span>
  <a href="/product-reviews/B08N5WRWNW#customerReviews"><span>12,345</span></a>
  <span class="p13n-sc-price">$18.99</span>
</div>
</body></html>`

const legacyFixture = `<!DOCTYPE html>
<html><body>
<ol id="zg-ordered-list">
  <li class="zg-item-immersion">
    <a href="https://www.amazon.com/gp/product/b000123456?tag=tracking-20">
      <span class="p13n-sc-truncate">Wireless Earbuds</span>
    </a>
    <span class="a-icon-alt">4.2 out of 5 stars</span>
    <span class="a-size-small">1.2K</span>
  </li>
</ol>
</body></html>`

const fallbackFixture = `<!DOCTYPE html>
<html><body>
<div class="unknown-future-layout">
  <a href="/some-thing/dp/B09XYZABCD?psc=1">Mystery Gadget</a>
</div>
</body></html>`

func TestExtractFromGridLayout(t *testing.T) {
	product, err := newTestExtractor().ExtractFromHTML(gridFixture)
	require.NoError(t, err)

	assert.Equal(t, "B08N5WRWNW", product.ASIN)
	assert.Equal(t, "The Dutch Oven Cookbook", product.Name)
	assert.Equal(t, "https://www.amazon.com/dp/B08N5WRWNW", product.AmazonURL)
	require.NotNil(t, product.Price)
	assert.InDelta(t, 18.99, *product.Price, 0.001)
	require.NotNil(t, product.Rating)
	assert.InDelta(t, 4.7, *product.Rating, 0.001)
	require.NotNil(t, product.ReviewCount)
	assert.Equal(t, 12345, *product.ReviewCount)
	require.NotNil(t, product.ImageURL)
	assert.Equal(t, "https://images.example.com/I/81abc.jpg", *product.ImageURL)
	assert.False(t, product.LowConfidence)
}

func TestExtractFromLegacyListLayout(t *testing.T) {
	product, err := newTestExtractor().ExtractFromHTML(legacyFixture)
	require.NoError(t, err)

	assert.Equal(t, "B000123456", product.ASIN)
	assert.Equal(t, "Wireless Earbuds", product.Name)
	assert.Equal(t, "https://www.amazon.com/dp/B000123456", product.AmazonURL)
	assert.Nil(t, product.Price)
	require.NotNil(t, product.Rating)
	assert.InDelta(t, 4.2, *product.Rating, 0.001)
	require.NotNil(t, product.ReviewCount)
	assert.Equal(t, 1200, *product.ReviewCount)
}

func TestExtractFallbackAnchor(t *testing.T) {
	product, err := newTestExtractor().ExtractFromHTML(fallbackFixture)
	require.NoError(t, err)

	assert.Equal(t, "B09XYZABCD", product.ASIN)
	assert.Equal(t, "Mystery Gadget", product.Name)
	assert.Equal(t, "https://www.amazon.com/dp/B09XYZABCD", product.AmazonURL)
	assert.True(t, product.LowConfidence)
	assert.Nil(t, product.Price)
	assert.Nil(t, product.Rating)
	assert.Nil(t, product.ReviewCount)
	assert.Nil(t, product.ImageURL)
}

func TestExtractNoProduct(t *testing.T) {
	_, err := newTestExtractor().ExtractFromHTML(`<html><body><p>empty shelf</p></body></html>`)
	assert.ErrorIs(t, err, ErrNoProduct)
}

func TestExtractMalformedASINDiscarded(t *testing.T) {
	html := `<html><body>
	<div id="gridItemRoot">
	  <a class="a-link-normal" href="/dp/SHORT">Broken</a>
	</div>
	</body></html>`

	_, err := newTestExtractor().ExtractFromHTML(html)
	assert.ErrorIs(t, err, ErrNoProduct)
}

func TestCardStrategyOrderPrefersGrid(t *testing.T) {
	// Both layouts present: the grid strategy must win and the legacy
	// card's junk must not pollute the result.
	html := `<!DOCTYPE html>
<html><body>
<div id="gridItemRoot">
  <a class="a-link-normal" href="/dp/B08N5WRWNW"><div class="p13n-sc-css-line-clamp-3">Grid Winner</div></a>
</div>
<ol id="zg-ordered-list">
  <li class="zg-item-immersion">
    <a href="/gp/product/B000123456"><span class="p13n-sc-truncate">Legacy Loser</span></a>
  </li>
</ol>
</body></html>`

	product, err := newTestExtractor().ExtractFromHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "B08N5WRWNW", product.ASIN)
}

func TestEnrichFromHTMLFillsMissingFieldsOnly(t *testing.T) {
	e := newTestExtractor()

	existing := 9.99

	detail := `<html><body>
	<span id="productTitle"> The Dutch Oven Cookbook: Second Edition </span>
	<div class="a-price"><span class="a-offscreen">$21.49</span></div>
	<span class="a-icon-alt">4.8 out of 5 stars</span>
	<span id="acrCustomerReviewText">23,456 ratings</span>
	<img id="landingImage" src="https://images.example.com/I/full.jpg"/>
	</body></html>`

	base, err := e.ExtractFromHTML(gridFixture)
	require.NoError(t, err)
	base.Price = &existing

	e.enrichFromHTML(detail, base)

	assert.Equal(t, "The Dutch Oven Cookbook: Second Edition", base.Name)
	// Already-present fields are kept.
	assert.InDelta(t, 9.99, *base.Price, 0.001)
	assert.InDelta(t, 4.7, *base.Rating, 0.001)
}
