package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/toppicks/bestseller-scraper/internal/browser"
	"github.com/toppicks/bestseller-scraper/internal/metrics"
	"github.com/toppicks/bestseller-scraper/internal/models"
	"github.com/toppicks/bestseller-scraper/internal/parser"
	"github.com/toppicks/bestseller-scraper/internal/ratelimit"
)

// ErrNoDepartments means the landing page matched none of the known
// navigation layouts.
var ErrNoDepartments = errors.New("no departments found on landing page")

// departmentSelectors locate department links on the bestsellers landing
// page. Tried in order; the first selector returning any matches wins, and
// later selectors are never merged in.
var departmentSelectors = []string{
	`div[role="tree"] div[role="treeitem"] a`,
	`div[class*="_p13n-zg-nav-tree"] a`,
	"#zg_browseRoot a",
	"#zg-left-col a",
}

// categoryTreeSelectors locate subcategory links inside a department page's
// navigation tree.
var categoryTreeSelectors = []string{
	`div[role="tree"] div[role="treeitem"] a`,
	`div[class*="_p13n-zg-nav-tree"] a`,
	"#zg_browseRoot ul ul a",
}

// categoryFallbackSelector is the permissive strategy used only when the
// tree strategies yield nothing; matched links are assumed to be level 2.
const categoryFallbackSelector = `a[href*="/zgbs/"]`

const maxCategoryLevel = 3

type Options struct {
	RootURL             string
	BaseURL             string
	SelectorWait        time.Duration
	MaxDepartments      int
	MaxCategoriesPerDpt int
	Settle              ratelimit.DelayFunc
	InterDepartment     ratelimit.DelayFunc
}

// Discoverer walks the department -> category navigation tree and produces
// the flat category list the scraping phase runs from.
type Discoverer struct {
	session *browser.Session
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(session *browser.Session, opts Options, logger *slog.Logger, m *metrics.Metrics) *Discoverer {
	if opts.SelectorWait <= 0 {
		opts.SelectorWait = 30 * time.Second
	}
	return &Discoverer{
		session: session,
		opts:    opts,
		logger:  logger.With("component", "discovery"),
		metrics: m,
	}
}

// Discover crawls the landing page and every department page, returning the
// accumulated category list. One department failing yields zero categories
// for that department; it never aborts the run.
func (d *Discoverer) Discover(ctx context.Context) ([]models.Category, error) {
	page, err := d.session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Context().Close()

	if !d.session.NavigateWithRetry(ctx, page, d.opts.RootURL) {
		return nil, fmt.Errorf("failed to load bestsellers landing page %s", d.opts.RootURL)
	}

	// Wait for any known navigation container before snapshotting.
	waitSelector := strings.Join(departmentSelectors, ", ")
	if _, err := page.WaitForSelector(waitSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(d.opts.SelectorWait.Milliseconds())),
	}); err != nil {
		d.logger.Warn("navigation container did not appear, snapshotting anyway", "error", err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read landing page: %w", err)
	}

	departments, err := d.ExtractDepartments(html)
	if err != nil {
		return nil, err
	}

	if d.opts.MaxDepartments > 0 && len(departments) > d.opts.MaxDepartments {
		departments = departments[:d.opts.MaxDepartments]
	}
	d.logger.Info("departments discovered", "count", len(departments))

	pacer := ratelimit.NewPacer(d.opts.InterDepartment)
	seen := make(map[string]bool)
	var categories []models.Category

	for _, dept := range departments {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}

		subcategories, err := d.discoverDepartment(ctx, page, dept)
		if err != nil {
			d.logger.Warn("department discovery failed, continuing",
				"department", dept.Slug, "error", err)
			d.metrics.IncError("discovery")
			continue
		}

		for _, category := range subcategories {
			if seen[category.FullSlug] {
				continue
			}
			seen[category.FullSlug] = true
			categories = append(categories, category)
		}
	}

	d.metrics.SetDiscovered(len(departments), len(categories))
	d.logger.Info("discovery complete", "departments", len(departments), "categories", len(categories))
	return categories, nil
}

func (d *Discoverer) discoverDepartment(ctx context.Context, page playwright.Page, dept models.Department) ([]models.Category, error) {
	if !d.session.NavigateWithRetry(ctx, page, dept.URL) {
		return nil, fmt.Errorf("failed to load department page %s", dept.URL)
	}

	// Settle delay lets lazy-loaded navigation render and models a human
	// browsing pace.
	if err := ratelimit.Sleep(ctx, d.opts.Settle); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read department page: %w", err)
	}

	return d.ExtractSubcategories(html, dept), nil
}

// ExtractDepartments pulls department links out of a landing-page snapshot,
// de-duplicated by derived slug.
func (d *Discoverer) ExtractDepartments(html string) ([]models.Department, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	anchors := firstMatchingSelector(doc, departmentSelectors)
	if anchors == nil {
		return nil, ErrNoDepartments
	}

	seen := make(map[string]bool)
	var departments []models.Department

	anchors.Each(func(_ int, anchor *goquery.Selection) {
		name := strings.TrimSpace(anchor.Text())
		href, ok := anchor.Attr("href")
		if !ok || name == "" {
			return
		}

		url := parser.ResolveURL(d.opts.BaseURL, href)
		slug := parser.SlugFromURL(url, name)
		if slug == "" || seen[slug] {
			return
		}
		seen[slug] = true

		departments = append(departments, models.Department{
			Name: name,
			Slug: slug,
			URL:  url,
		})
	})

	if len(departments) == 0 {
		return nil, ErrNoDepartments
	}
	return departments, nil
}

// ExtractSubcategories pulls category links out of a department-page
// snapshot. The tree strategies compute level from DOM nesting; the
// fallback strategy assumes level 2. Self-referential entries (category
// slug equal to the department slug) are dropped.
func (d *Discoverer) ExtractSubcategories(html string, dept models.Department) []models.Category {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		d.logger.Warn("failed to parse department page", "department", dept.Slug, "error", err)
		return nil
	}

	anchors := firstMatchingSelector(doc, categoryTreeSelectors)
	fallback := false
	if anchors == nil {
		anchors = doc.Find(categoryFallbackSelector)
		if anchors.Length() == 0 {
			return nil
		}
		fallback = true
		d.logger.Warn("tree strategies yielded nothing, using URL-pattern fallback",
			"department", dept.Slug)
	}

	seen := make(map[string]bool)
	var categories []models.Category

	anchors.EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		if d.opts.MaxCategoriesPerDpt > 0 && len(categories) >= d.opts.MaxCategoriesPerDpt {
			return false
		}

		name := strings.TrimSpace(anchor.Text())
		href, ok := anchor.Attr("href")
		if !ok || name == "" {
			return true
		}

		url := parser.ResolveURL(d.opts.BaseURL, href)
		slug := parser.SlugFromURL(url, name)
		if slug == "" || slug == dept.Slug {
			return true
		}

		fullSlug := dept.Slug + "/" + slug
		if seen[fullSlug] {
			return true
		}
		seen[fullSlug] = true

		level := 2
		if !fallback {
			level = nestingLevel(anchor)
		}

		categories = append(categories, models.Category{
			Name:           name,
			Slug:           slug,
			URL:            url,
			DepartmentName: dept.Name,
			DepartmentSlug: dept.Slug,
			FullSlug:       fullSlug,
			Level:          level,
		})
		return true
	})

	return categories
}

// nestingLevel counts ancestor group containers, capped at maxCategoryLevel.
// A heuristic tied to the site's current markup; treat the result as
// advisory metadata.
func nestingLevel(anchor *goquery.Selection) int {
	level := anchor.ParentsFiltered(`div[role="group"]`).Length()
	if level < 1 {
		level = 1
	}
	if level > maxCategoryLevel {
		level = maxCategoryLevel
	}
	return level
}

func firstMatchingSelector(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}
