package travel

import (
	"context"
	"errors"
	"fmt"

	"github.com/wayfarer-dev/wayfarer/pkg/api"
	"github.com/wayfarer-dev/wayfarer/pkg/collab"
)

// State field names. Parallel stages write disjoint fields by convention,
// which is what makes the executor's flat last-writer-wins merge safe.
const (
	FieldDestination = "destination"
	FieldBudget      = "budget"
	FieldDays        = "days"
	FieldTravelers   = "travelers"
	FieldInterests   = "interests"

	FieldCollected       = "collected_data"
	FieldScraped         = "scraped_data"
	FieldProcessed       = "processed_data"
	FieldRecommendations = "recommendations"
	FieldSentiment       = "sentiment_analysis"
	FieldSimilarity      = "similarity_clusters"
	FieldPrices          = "price_forecast"
	FieldPlan            = "travel_plan"
	FieldInsights        = "research_insights"
	FieldSummary         = "summary"
)

// Stage names of the planning graph.
const (
	StageCollectPlaces     = "collect_places"
	StageScrapeSources     = "scrape_sources"
	StageProcessData       = "process_data"
	StageRecommend         = "recommend"
	StageAnalyzeSentiment  = "analyze_sentiment"
	StageClusterSimilarity = "cluster_similarity"
	StagePredictPrices     = "predict_prices"
	StageBuildPlan         = "build_plan"
	StageResearchInsights  = "research_insights"
	StageSummarize         = "summarize"
)

// Stages bundles the stage functions of the planning workflow with the
// collaborators they call. Acquisition stages go through the collector and
// scraper; the parallel analysis stages go through the scorer. The core
// makes no distinction between an in-process heuristic and a remote
// service behind any of the three.
type Stages struct {
	collector collab.Caller
	scraper   collab.Caller
	scorer    collab.Caller
}

// NewStages creates the stage set. All collaborators are required; wrap
// them in collab.Adapter to get caching, retry, and rate limiting.
func NewStages(collector, scraper, scorer collab.Caller) *Stages {
	if collector == nil || scraper == nil || scorer == nil {
		panic("travel: collector, scraper, and scorer collaborators are required")
	}
	return &Stages{collector: collector, scraper: scraper, scorer: scorer}
}

// Graph assembles the fixed planning topology:
//
//	collect_places -> scrape_sources -> process_data ->
//	{recommend, analyze_sentiment, cluster_similarity, predict_prices} ->
//	build_plan -> research_insights -> summarize
func (s *Stages) Graph() *api.Graph {
	return api.NewGraph("travel-plan").
		Stage(StageCollectPlaces, s.CollectPlaces).
		Stage(StageScrapeSources, s.ScrapeSources, StageCollectPlaces).
		Stage(StageProcessData, s.ProcessData, StageScrapeSources).
		Stage(StageRecommend, s.Recommend, StageProcessData).
		Stage(StageAnalyzeSentiment, s.AnalyzeSentiment, StageProcessData).
		Stage(StageClusterSimilarity, s.ClusterSimilarity, StageProcessData).
		Stage(StagePredictPrices, s.PredictPrices, StageProcessData).
		Stage(StageBuildPlan, s.BuildPlan,
			StageRecommend, StageAnalyzeSentiment, StageClusterSimilarity, StagePredictPrices).
		Stage(StageResearchInsights, s.ResearchInsights, StageBuildPlan).
		Stage(StageSummarize, s.Summarize, StageResearchInsights).
		MustBuild()
}

// field reads a typed value from a state snapshot, returning the zero
// value when the field is absent or of another type. Stages tolerate
// missing upstream data so a failed predecessor degrades the plan instead
// of killing it.
func field[T any](snap *api.State, name string) T {
	v, _ := snap.Get(name)
	t, _ := v.(T)
	return t
}

// CollectPlaces fetches places, current weather, and general travel info
// for the destination. Each collaborator failure is reported but does not
// discard the data already gathered.
func (s *Stages) CollectPlaces(ctx context.Context, snap *api.State) (api.Fields, error) {
	dest := snap.String(FieldDestination)

	var collected CollectedData
	var errs []error

	if v, err := s.collector.Call(ctx, OpPlacesSearch, map[string]any{"destination": dest}); err != nil {
		errs = append(errs, err)
	} else if places, ok := v.([]Place); ok {
		collected.Places = places
	}

	if v, err := s.collector.Call(ctx, OpWeatherCurrent, map[string]any{"destination": dest}); err != nil {
		errs = append(errs, err)
	} else if w, ok := v.(Weather); ok {
		collected.Weather = w
	}

	if v, err := s.collector.Call(ctx, OpWebSearch, map[string]any{
		"destination": dest,
		"query":       "travel guide " + dest,
	}); err != nil {
		errs = append(errs, err)
	} else if info, ok := v.([]SearchResult); ok {
		collected.TravelInfo = info
	}

	return api.Fields{FieldCollected: collected}, errors.Join(errs...)
}

// ScrapeSources gathers additional places, hotels, restaurants, reviews,
// and events from the scraper collaborator.
func (s *Stages) ScrapeSources(ctx context.Context, snap *api.State) (api.Fields, error) {
	dest := snap.String(FieldDestination)
	params := map[string]any{"destination": dest}

	var scraped ScrapedData
	var errs []error

	if v, err := s.scraper.Call(ctx, OpScrapePlaces, params); err != nil {
		errs = append(errs, err)
	} else if places, ok := v.([]Place); ok {
		scraped.Places = places
	}

	if v, err := s.scraper.Call(ctx, OpScrapeHotels, params); err != nil {
		errs = append(errs, err)
	} else if hotels, ok := v.([]Place); ok {
		scraped.Hotels = hotels
	}

	if v, err := s.scraper.Call(ctx, OpScrapeRestaurants, params); err != nil {
		errs = append(errs, err)
	} else if restaurants, ok := v.([]Place); ok {
		scraped.Restaurants = restaurants
	}

	if v, err := s.scraper.Call(ctx, OpScrapeReviews, params); err != nil {
		errs = append(errs, err)
	} else if reviews, ok := v.([]Review); ok {
		scraped.Reviews = reviews
	}

	if v, err := s.scraper.Call(ctx, OpScrapeEvents, params); err != nil {
		errs = append(errs, err)
	} else if events, ok := v.([]Event); ok {
		scraped.Events = events
	}

	return api.Fields{FieldScraped: scraped}, errors.Join(errs...)
}

// ProcessData combines collected and scraped data into the shared dataset
// the parallel analysis stages consume.
func (s *Stages) ProcessData(ctx context.Context, snap *api.State) (api.Fields, error) {
	collected := field[CollectedData](snap, FieldCollected)
	scraped := field[ScrapedData](snap, FieldScraped)

	var processed ProcessedData
	processed.Places = append(processed.Places, collected.Places...)
	processed.Places = append(processed.Places, scraped.Places...)
	processed.Places = append(processed.Places, scraped.Hotels...)
	processed.Places = append(processed.Places, scraped.Restaurants...)
	processed.Reviews = scraped.Reviews
	processed.Events = scraped.Events

	if len(processed.Places) == 0 {
		return api.Fields{FieldProcessed: processed},
			fmt.Errorf("no places collected for %q", snap.String(FieldDestination))
	}
	return api.Fields{FieldProcessed: processed}, nil
}

// Recommend asks the scorer for the top-rated places per category.
func (s *Stages) Recommend(ctx context.Context, snap *api.State) (api.Fields, error) {
	processed := field[ProcessedData](snap, FieldProcessed)

	v, err := s.scorer.Call(ctx, OpScoreRecommend, map[string]any{"places": processed.Places})
	if err != nil {
		return nil, err
	}
	recs, _ := v.(Recommendations)
	return api.Fields{FieldRecommendations: recs}, nil
}

// AnalyzeSentiment asks the scorer for a review sentiment tally.
func (s *Stages) AnalyzeSentiment(ctx context.Context, snap *api.State) (api.Fields, error) {
	processed := field[ProcessedData](snap, FieldProcessed)

	v, err := s.scorer.Call(ctx, OpScoreSentiment, map[string]any{"reviews": processed.Reviews})
	if err != nil {
		return nil, err
	}
	sentiment, _ := v.(SentimentSummary)
	return api.Fields{FieldSentiment: sentiment}, nil
}

// ClusterSimilarity asks the scorer to group places into budget tiers.
func (s *Stages) ClusterSimilarity(ctx context.Context, snap *api.State) (api.Fields, error) {
	processed := field[ProcessedData](snap, FieldProcessed)

	v, err := s.scorer.Call(ctx, OpScoreSimilarity, map[string]any{"places": processed.Places})
	if err != nil {
		return nil, err
	}
	clusters, _ := v.(SimilarityClusters)
	return api.Fields{FieldSimilarity: clusters}, nil
}

// PredictPrices asks the scorer to split the budget across spending
// classes.
func (s *Stages) PredictPrices(ctx context.Context, snap *api.State) (api.Fields, error) {
	v, err := s.scorer.Call(ctx, OpScorePrices, map[string]any{
		"budget":    snap.Int(FieldBudget),
		"days":      snap.Int(FieldDays),
		"travelers": snap.Int(FieldTravelers),
	})
	if err != nil {
		return nil, err
	}
	forecast, _ := v.(PriceForecast)
	return api.Fields{FieldPrices: forecast}, nil
}

// BuildPlan converges the four analysis results into a day-by-day
// itinerary.
func (s *Stages) BuildPlan(ctx context.Context, snap *api.State) (api.Fields, error) {
	recs := field[Recommendations](snap, FieldRecommendations)
	forecast := field[PriceForecast](snap, FieldPrices)
	days := snap.Int(FieldDays)

	plan := Plan{
		Destination:    snap.String(FieldDestination),
		Days:           days,
		EstimatedCosts: forecast,
	}

	for day := 1; day <= days; day++ {
		dp := DayPlan{
			Day:           day,
			Morning:       "city exploration",
			Afternoon:     "local activities",
			Evening:       "local dining",
			Accommodation: "local hotel",
		}
		if n := len(recs.Attractions); n > 0 {
			dp.Morning = recs.Attractions[(day*2)%n].Name
			dp.Afternoon = recs.Attractions[(day*2+1)%n].Name
		}
		if n := len(recs.Restaurants); n > 0 {
			dp.Evening = recs.Restaurants[(day-1)%n].Name
		}
		if len(recs.Hotels) > 0 {
			dp.Accommodation = recs.Hotels[0].Name
		}
		plan.Itinerary = append(plan.Itinerary, dp)
	}

	return api.Fields{FieldPlan: plan}, nil
}

// ResearchInsights enriches the plan with destination notes.
func (s *Stages) ResearchInsights(ctx context.Context, snap *api.State) (api.Fields, error) {
	dest := snap.String(FieldDestination)
	processed := field[ProcessedData](snap, FieldProcessed)

	insights := Insights{
		BestSeason:     fmt.Sprintf("Best time to visit %s is during the dry season", dest),
		CulturalTips:   fmt.Sprintf("Respect local customs in %s", dest),
		Transportation: fmt.Sprintf("Use local transport in %s for an authentic experience", dest),
		Safety:         fmt.Sprintf("Take general safety precautions in %s", dest),
	}
	for _, ev := range processed.Events {
		insights.LocalEvents = append(insights.LocalEvents, ev.Name)
	}
	return api.Fields{FieldInsights: insights}, nil
}

// Summarize is the sink stage: it aggregates the whole run into a compact
// summary. It always executes, even when earlier stages failed, so the
// caller gets whatever partial plan was assembled.
func (s *Stages) Summarize(ctx context.Context, snap *api.State) (api.Fields, error) {
	processed := field[ProcessedData](snap, FieldProcessed)
	recs := field[Recommendations](snap, FieldRecommendations)
	sentiment := field[SentimentSummary](snap, FieldSentiment)
	plan := field[Plan](snap, FieldPlan)

	summary := Summary{
		TotalPlacesAnalyzed:      len(processed.Places),
		RecommendationsGenerated: len(recs.Hotels) + len(recs.Restaurants) + len(recs.Attractions),
		OverallSentiment:         sentiment.Overall,
		Highlights: []string{
			fmt.Sprintf("Generated a %d-day plan for %s", plan.Days, snap.String(FieldDestination)),
			fmt.Sprintf("Budget allocation optimized for %d", snap.Int(FieldBudget)),
			fmt.Sprintf("Found %d recommended hotels", len(recs.Hotels)),
			fmt.Sprintf("Review sentiment is %s overall", sentiment.Overall),
		},
	}
	return api.Fields{FieldSummary: summary}, nil
}
