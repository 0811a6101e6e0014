package travel

import (
	"context"
	"errors"
	"testing"

	"github.com/wayfarer-dev/wayfarer/pkg/api"
	"github.com/wayfarer-dev/wayfarer/pkg/collab"
)

func testStages() *Stages {
	return NewStages(StaticService{}, StaticService{}, ScoringService{})
}

func TestGraph_Topology(t *testing.T) {
	g := testStages().Graph()

	if g.Entry() != StageCollectPlaces {
		t.Fatalf("unexpected entry %q", g.Entry())
	}
	if g.Sink() != StageSummarize {
		t.Fatalf("unexpected sink %q", g.Sink())
	}
	if len(g.Stages()) != 10 {
		t.Fatalf("expected 10 stages, got %d", len(g.Stages()))
	}

	fanOut := g.Downstream(StageProcessData)
	if len(fanOut) != 4 {
		t.Fatalf("expected 4 parallel analysis stages, got %v", fanOut)
	}

	plan, _ := g.Stage(StageBuildPlan)
	if len(plan.Upstream) != 4 {
		t.Fatalf("build_plan must converge all four analysis stages, got %v", plan.Upstream)
	}
}

func TestCollectPlaces_GathersAllSources(t *testing.T) {
	snap := api.NewState(api.Fields{FieldDestination: "Lisbon"})

	fields, err := testStages().CollectPlaces(context.Background(), snap)
	if err != nil {
		t.Fatalf("CollectPlaces failed: %v", err)
	}

	collected, ok := fields[FieldCollected].(CollectedData)
	if !ok {
		t.Fatalf("missing collected data: %v", fields)
	}
	if len(collected.Places) == 0 {
		t.Fatal("expected places from the collector")
	}
	if collected.Weather.Condition == "" {
		t.Fatal("expected a weather snapshot")
	}
	if len(collected.TravelInfo) == 0 {
		t.Fatal("expected web search results")
	}
}

func TestCollectPlaces_PartialOnCollaboratorFailure(t *testing.T) {
	failing := collab.CallerFunc(func(ctx context.Context, operation string, params map[string]any) (any, error) {
		if operation == OpWeatherCurrent {
			return nil, errors.New("weather service down")
		}
		return StaticService{}.Call(ctx, operation, params)
	})
	stages := NewStages(failing, StaticService{}, ScoringService{})

	snap := api.NewState(api.Fields{FieldDestination: "Lisbon"})
	fields, err := stages.CollectPlaces(context.Background(), snap)
	if err == nil {
		t.Fatal("expected the weather failure to be reported")
	}

	collected := fields[FieldCollected].(CollectedData)
	if len(collected.Places) == 0 {
		t.Fatal("partial data must survive a single collaborator failure")
	}
	if collected.Weather.Condition != "" {
		t.Fatal("failed weather call must leave the field empty")
	}
}

func TestProcessData_CombinesAndValidates(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldDestination: "Lisbon",
		FieldCollected: CollectedData{
			Places: []Place{{Name: "Castle", Category: CategoryAttraction}},
		},
		FieldScraped: ScrapedData{
			Hotels:  []Place{{Name: "Inn", Category: CategoryHotel}},
			Reviews: []Review{{Place: "Castle", Rating: 4.5}},
			Events:  []Event{{Name: "Fado Night"}},
		},
	})

	fields, err := testStages().ProcessData(context.Background(), snap)
	if err != nil {
		t.Fatalf("ProcessData failed: %v", err)
	}

	processed := fields[FieldProcessed].(ProcessedData)
	if len(processed.Places) != 2 {
		t.Fatalf("expected combined places, got %v", processed.Places)
	}
	if len(processed.Reviews) != 1 || len(processed.Events) != 1 {
		t.Fatalf("reviews/events lost: %+v", processed)
	}
}

func TestProcessData_ErrorsOnEmptyDataset(t *testing.T) {
	snap := api.NewState(api.Fields{FieldDestination: "Nowhere"})

	if _, err := testStages().ProcessData(context.Background(), snap); err == nil {
		t.Fatal("expected an error when nothing was collected")
	}
}

func TestRecommend_TopRatedPerCategory(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldProcessed: ProcessedData{
			Places: []Place{
				{Name: "h1", Category: CategoryHotel, Rating: 4.8},
				{Name: "h2", Category: CategoryHotel, Rating: 4.2},
				{Name: "h3", Category: CategoryHotel, Rating: 4.5},
				{Name: "h4", Category: CategoryHotel, Rating: 4.9},
				{Name: "low", Category: CategoryHotel, Rating: 3.2},
				{Name: "r1", Category: CategoryRestaurant, Rating: 4.1},
			},
		},
	})

	fields, err := testStages().Recommend(context.Background(), snap)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	recs := fields[FieldRecommendations].(Recommendations)
	if len(recs.Hotels) != 3 {
		t.Fatalf("expected top 3 hotels, got %v", recs.Hotels)
	}
	if recs.Hotels[0].Name != "h4" || recs.Hotels[1].Name != "h1" || recs.Hotels[2].Name != "h3" {
		t.Fatalf("hotels not sorted by rating: %v", recs.Hotels)
	}
	for _, h := range recs.Hotels {
		if h.Rating < 4.0 {
			t.Fatalf("sub-4.0 place recommended: %+v", h)
		}
	}
	if len(recs.Restaurants) != 1 || len(recs.Attractions) != 0 {
		t.Fatalf("unexpected other categories: %+v", recs)
	}
}

func TestAnalyzeSentiment_Tallies(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldProcessed: ProcessedData{
			Reviews: []Review{
				{Rating: 5.0}, {Rating: 4.0}, {Rating: 2.0},
			},
		},
	})

	fields, err := testStages().AnalyzeSentiment(context.Background(), snap)
	if err != nil {
		t.Fatalf("AnalyzeSentiment failed: %v", err)
	}

	sentiment := fields[FieldSentiment].(SentimentSummary)
	if sentiment.Positive != 2 || sentiment.Negative != 1 {
		t.Fatalf("unexpected tally: %+v", sentiment)
	}
	if sentiment.AverageScore < 3.6 || sentiment.AverageScore > 3.7 {
		t.Fatalf("unexpected average: %v", sentiment.AverageScore)
	}
	if sentiment.Overall != "positive" {
		t.Fatalf("unexpected overall: %q", sentiment.Overall)
	}
}

func TestAnalyzeSentiment_NoReviewsIsNeutral(t *testing.T) {
	fields, err := testStages().AnalyzeSentiment(context.Background(), api.NewState(nil))
	if err != nil {
		t.Fatalf("AnalyzeSentiment failed: %v", err)
	}
	if s := fields[FieldSentiment].(SentimentSummary); s.Overall != "neutral" {
		t.Fatalf("expected neutral with no reviews, got %+v", s)
	}
}

func TestClusterSimilarity_GroupsByPriceLevel(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldProcessed: ProcessedData{
			Places: []Place{
				{Name: "cheap", PriceLevel: 1},
				{Name: "fair", PriceLevel: 2},
				{Name: "mid", PriceLevel: 3},
				{Name: "lux", PriceLevel: 4},
			},
		},
	})

	fields, err := testStages().ClusterSimilarity(context.Background(), snap)
	if err != nil {
		t.Fatalf("ClusterSimilarity failed: %v", err)
	}

	clusters := fields[FieldSimilarity].(SimilarityClusters)
	if len(clusters.Budget) != 2 || len(clusters.MidRange) != 1 || len(clusters.Premium) != 1 {
		t.Fatalf("unexpected clustering: %+v", clusters)
	}
}

func TestPredictPrices_SplitsBudget(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldBudget:    1000,
		FieldDays:      5,
		FieldTravelers: 2,
	})

	fields, err := testStages().PredictPrices(context.Background(), snap)
	if err != nil {
		t.Fatalf("PredictPrices failed: %v", err)
	}

	forecast := fields[FieldPrices].(PriceForecast)
	if forecast.Accommodation != 400 || forecast.Food != 300 || forecast.Activities != 200 || forecast.Transportation != 100 {
		t.Fatalf("unexpected split: %+v", forecast)
	}
	if forecast.DailyBudget != 200 || forecast.PerPerson != 500 {
		t.Fatalf("unexpected per-day/per-person: %+v", forecast)
	}
}

func TestBuildPlan_FillsEveryDay(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldDestination: "Lisbon",
		FieldDays:        3,
		FieldRecommendations: Recommendations{
			Hotels:      []Place{{Name: "Grand Hotel"}},
			Restaurants: []Place{{Name: "Bistro"}, {Name: "Grill"}},
			Attractions: []Place{{Name: "Castle"}, {Name: "Museum"}},
		},
		FieldPrices: PriceForecast{DailyBudget: 100},
	})

	fields, err := testStages().BuildPlan(context.Background(), snap)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	plan := fields[FieldPlan].(Plan)
	if plan.Destination != "Lisbon" || plan.Days != 3 || len(plan.Itinerary) != 3 {
		t.Fatalf("unexpected plan shape: %+v", plan)
	}
	for i, day := range plan.Itinerary {
		if day.Day != i+1 {
			t.Fatalf("day numbering broken: %+v", plan.Itinerary)
		}
		if day.Morning == "" || day.Afternoon == "" || day.Evening == "" {
			t.Fatalf("day %d has empty slots: %+v", day.Day, day)
		}
		if day.Accommodation != "Grand Hotel" {
			t.Fatalf("expected the top hotel every night, got %+v", day)
		}
	}
	if plan.EstimatedCosts.DailyBudget != 100 {
		t.Fatalf("price forecast lost: %+v", plan.EstimatedCosts)
	}
}

func TestBuildPlan_FallbacksWithoutRecommendations(t *testing.T) {
	snap := api.NewState(api.Fields{FieldDestination: "Lisbon", FieldDays: 1})

	fields, err := testStages().BuildPlan(context.Background(), snap)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	plan := fields[FieldPlan].(Plan)
	if len(plan.Itinerary) != 1 {
		t.Fatalf("unexpected itinerary: %+v", plan)
	}
	day := plan.Itinerary[0]
	if day.Morning == "" || day.Evening == "" || day.Accommodation == "" {
		t.Fatalf("fallback slots missing: %+v", day)
	}
}

func TestSummarize_AggregatesRun(t *testing.T) {
	snap := api.NewState(api.Fields{
		FieldDestination: "Lisbon",
		FieldBudget:      2400,
		FieldProcessed:   ProcessedData{Places: make([]Place, 7)},
		FieldRecommendations: Recommendations{
			Hotels:      make([]Place, 2),
			Restaurants: make([]Place, 3),
			Attractions: make([]Place, 1),
		},
		FieldSentiment: SentimentSummary{Overall: "positive"},
		FieldPlan:      Plan{Days: 5},
	})

	fields, err := testStages().Summarize(context.Background(), snap)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	summary := fields[FieldSummary].(Summary)
	if summary.TotalPlacesAnalyzed != 7 {
		t.Fatalf("unexpected place count: %+v", summary)
	}
	if summary.RecommendationsGenerated != 6 {
		t.Fatalf("unexpected recommendation count: %+v", summary)
	}
	if summary.OverallSentiment != "positive" {
		t.Fatalf("sentiment lost: %+v", summary)
	}
	if len(summary.Highlights) == 0 {
		t.Fatal("expected highlights")
	}
}

func TestParams_Validate(t *testing.T) {
	valid := Params{Destination: "Lisbon", Budget: 1000, Days: 3, Travelers: 2}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	cases := []Params{
		{Budget: 1000, Days: 3, Travelers: 2},
		{Destination: "Lisbon", Days: 3, Travelers: 2},
		{Destination: "Lisbon", Budget: 1000, Travelers: 2},
		{Destination: "Lisbon", Budget: 1000, Days: 3},
		{Destination: "Lisbon", Budget: -5, Days: 3, Travelers: 2},
	}
	for i, p := range cases {
		err := p.Validate()
		if err == nil {
			t.Fatalf("case %d: expected a validation error", i)
		}
		if !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("case %d: expected ErrInvalidParams, got %v", i, err)
		}
	}
}

func TestStaticService_Deterministic(t *testing.T) {
	svc := StaticService{}
	ctx := context.Background()
	params := map[string]any{"destination": "Lisbon"}

	a, err := svc.Call(ctx, OpScrapeHotels, params)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	b, err := svc.Call(ctx, OpScrapeHotels, params)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	hotelsA := a.([]Place)
	hotelsB := b.([]Place)
	if len(hotelsA) == 0 || len(hotelsA) != len(hotelsB) {
		t.Fatalf("unexpected hotel lists: %v / %v", hotelsA, hotelsB)
	}
	for i := range hotelsA {
		if hotelsA[i] != hotelsB[i] {
			t.Fatalf("repeated calls must agree: %+v != %+v", hotelsA[i], hotelsB[i])
		}
	}
}

func TestAnalysisStages_SurfaceScorerFailure(t *testing.T) {
	downScorer := collab.CallerFunc(func(ctx context.Context, operation string, params map[string]any) (any, error) {
		return nil, errors.New("scoring service down")
	})
	stages := NewStages(StaticService{}, StaticService{}, downScorer)
	snap := api.NewState(api.Fields{FieldProcessed: ProcessedData{Places: []Place{{Name: "x"}}}})

	if _, err := stages.Recommend(context.Background(), snap); err == nil {
		t.Fatal("expected the scorer failure to surface")
	}
	if _, err := stages.PredictPrices(context.Background(), snap); err == nil {
		t.Fatal("expected the scorer failure to surface")
	}
}

func TestScoringService_UnknownOperation(t *testing.T) {
	_, err := ScoringService{}.Call(context.Background(), "score.mood", nil)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestStaticService_UnknownOperation(t *testing.T) {
	_, err := StaticService{}.Call(context.Background(), "teleport", nil)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}
