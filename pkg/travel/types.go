// Package travel implements the travel-planning workflow on top of the
// wayfarer engine: data acquisition and enrichment stages backed by
// collaborator adapters, four parallel analysis stages, and the planning
// and summary stages that converge their results.
package travel

import "encoding/gob"

func init() {
	// Concrete types that travel collaborators return must be registered
	// so the cache codec can round-trip them inside interface values.
	gob.Register([]Place{})
	gob.Register([]Review{})
	gob.Register([]Event{})
	gob.Register([]SearchResult{})
	gob.Register(Weather{})
	gob.Register(Recommendations{})
	gob.Register(SentimentSummary{})
	gob.Register(SimilarityClusters{})
	gob.Register(PriceForecast{})
}

// Place categories used across collection and recommendation.
const (
	CategoryAttraction = "attraction"
	CategoryHotel      = "hotel"
	CategoryRestaurant = "restaurant"
)

// Place is a point of interest: an attraction, hotel, or restaurant.
type Place struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	City       string  `json:"city"`
	Rating     float64 `json:"rating"`
	PriceLevel int     `json:"price_level"` // 1 (cheap) .. 4 (premium)
}

// Review is a traveler review of a place.
type Review struct {
	Place  string  `json:"place"`
	Rating float64 `json:"rating"`
	Text   string  `json:"text,omitempty"`
}

// Event is a local event happening at the destination.
type Event struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// Weather is a current-conditions snapshot for the destination.
type Weather struct {
	Condition string  `json:"condition"`
	TempC     float64 `json:"temp_c"`
}

// SearchResult is one hit from a web search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// CollectedData is the output of the collect_places stage.
type CollectedData struct {
	Places     []Place        `json:"places"`
	Weather    Weather        `json:"weather"`
	TravelInfo []SearchResult `json:"travel_info"`
}

// ScrapedData is the output of the scrape_sources stage.
type ScrapedData struct {
	Places      []Place  `json:"places"`
	Hotels      []Place  `json:"hotels"`
	Restaurants []Place  `json:"restaurants"`
	Reviews     []Review `json:"reviews"`
	Events      []Event  `json:"events"`
}

// ProcessedData is the cleaned, combined dataset the analysis stages share.
type ProcessedData struct {
	Places  []Place  `json:"places"`
	Reviews []Review `json:"reviews"`
	Events  []Event  `json:"events"`
}

// Recommendations holds the top-rated places per category.
type Recommendations struct {
	Hotels      []Place `json:"hotels"`
	Restaurants []Place `json:"restaurants"`
	Attractions []Place `json:"attractions"`
}

// SentimentSummary aggregates review sentiment.
type SentimentSummary struct {
	Overall      string  `json:"overall"`
	Positive     int     `json:"positive"`
	Negative     int     `json:"negative"`
	AverageScore float64 `json:"average_score"`
}

// SimilarityClusters groups places by price level.
type SimilarityClusters struct {
	Budget   []Place `json:"budget"`
	MidRange []Place `json:"mid_range"`
	Premium  []Place `json:"premium"`
}

// PriceForecast splits the budget across spending classes.
type PriceForecast struct {
	Accommodation  float64 `json:"accommodation"`
	Food           float64 `json:"food"`
	Activities     float64 `json:"activities"`
	Transportation float64 `json:"transportation"`
	DailyBudget    float64 `json:"daily_budget"`
	PerPerson      float64 `json:"per_person"`
}

// DayPlan is one itinerary day.
type DayPlan struct {
	Day           int    `json:"day"`
	Morning       string `json:"morning"`
	Afternoon     string `json:"afternoon"`
	Evening       string `json:"evening"`
	Accommodation string `json:"accommodation"`
}

// Plan is the assembled travel plan.
type Plan struct {
	Destination    string        `json:"destination"`
	Days           int           `json:"days"`
	Itinerary      []DayPlan     `json:"itinerary"`
	EstimatedCosts PriceForecast `json:"estimated_costs"`
}

// Insights carries destination research notes.
type Insights struct {
	BestSeason     string   `json:"best_season"`
	CulturalTips   string   `json:"cultural_tips"`
	Transportation string   `json:"transportation"`
	Safety         string   `json:"safety"`
	LocalEvents    []string `json:"local_events"`
}

// Summary is the sink stage's aggregate of the whole run.
type Summary struct {
	TotalPlacesAnalyzed      int      `json:"total_places_analyzed"`
	RecommendationsGenerated int      `json:"recommendations_generated"`
	OverallSentiment         string   `json:"overall_sentiment"`
	Highlights               []string `json:"highlights"`
}
