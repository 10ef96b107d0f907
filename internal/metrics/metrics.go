package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper. All methods are
// nil-safe so components can run without metrics wired.
type Metrics struct {
	Registry                 *prometheus.Registry
	CategoriesProcessedTotal prometheus.Counter
	ProductsSubmittedTotal   prometheus.Counter
	ErrorsTotal              *prometheus.CounterVec
	NavigationRetriesTotal   prometheus.Counter
	BotChallengesTotal       prometheus.Counter
	DepartmentsDiscovered    prometheus.Gauge
	CategoriesDiscovered     prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	categoriesProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_categories_processed_total",
		Help: "Total number of bestseller category pages processed.",
	})
	productsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_products_submitted_total",
		Help: "Total number of products accepted by the ingestion API.",
	})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_errors_total",
		Help: "Total number of scraper errors by type.",
	}, []string{"error_type"})
	navRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_navigation_retries_total",
		Help: "Total number of navigation retry attempts.",
	})
	botChallenges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_bot_challenges_total",
		Help: "Total number of bot-challenge pages encountered.",
	})
	departments := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scraper_departments_discovered",
		Help: "Departments found by the most recent discovery run.",
	})
	categories := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scraper_categories_discovered",
		Help: "Categories found by the most recent discovery run.",
	})

	registry.MustRegister(categoriesProcessed, productsSubmitted, errorsTotal,
		navRetries, botChallenges, departments, categories)

	return &Metrics{
		Registry:                 registry,
		CategoriesProcessedTotal: categoriesProcessed,
		ProductsSubmittedTotal:   productsSubmitted,
		ErrorsTotal:              errorsTotal,
		NavigationRetriesTotal:   navRetries,
		BotChallengesTotal:       botChallenges,
		DepartmentsDiscovered:    departments,
		CategoriesDiscovered:     categories,
	}
}

func (m *Metrics) IncCategoriesProcessed() {
	if m == nil {
		return
	}
	m.CategoriesProcessedTotal.Inc()
}

func (m *Metrics) IncProductsSubmitted() {
	if m == nil {
		return
	}
	m.ProductsSubmittedTotal.Inc()
}

func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) IncNavigationRetry() {
	if m == nil {
		return
	}
	m.NavigationRetriesTotal.Inc()
}

func (m *Metrics) IncBotChallenge() {
	if m == nil {
		return
	}
	m.BotChallengesTotal.Inc()
}

func (m *Metrics) SetDiscovered(departments, categories int) {
	if m == nil {
		return
	}
	m.DepartmentsDiscovered.Set(float64(departments))
	m.CategoriesDiscovered.Set(float64(categories))
}
