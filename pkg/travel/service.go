package travel

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Collaborator operation names. The workflow is agnostic to which concrete
// service backs each operation; any collab.Caller that answers these is a
// valid backend.
const (
	OpPlacesSearch      = "places.search"
	OpWeatherCurrent    = "weather.current"
	OpWebSearch         = "web.search"
	OpScrapePlaces      = "scrape.places"
	OpScrapeHotels      = "scrape.hotels"
	OpScrapeRestaurants = "scrape.restaurants"
	OpScrapeReviews     = "scrape.reviews"
	OpScrapeEvents      = "scrape.events"
	OpScoreRecommend    = "score.recommend"
	OpScoreSentiment    = "score.sentiment"
	OpScoreSimilarity   = "score.similarity"
	OpScorePrices       = "score.prices"
)

// ErrUnknownOperation is returned for operations a service does not back.
var ErrUnknownOperation = errors.New("unknown operation")

// StaticService answers every travel operation with deterministic
// in-process data derived from the destination name. It backs tests and
// offline use; production deployments swap in real API and scraper
// collaborators behind the same Caller contract.
type StaticService struct{}

func (StaticService) Call(ctx context.Context, operation string, params map[string]any) (any, error) {
	dest, _ := params["destination"].(string)
	if dest == "" {
		dest = "Hanoi"
	}

	switch operation {
	case OpPlacesSearch:
		return staticPlaces(dest, CategoryAttraction, 5), nil
	case OpWeatherCurrent:
		return Weather{Condition: "partly cloudy", TempC: 28.5}, nil
	case OpWebSearch:
		query, _ := params["query"].(string)
		return []SearchResult{
			{Title: fmt.Sprintf("Travel guide: %s", dest), Snippet: "Top sights, food and neighborhoods."},
			{Title: fmt.Sprintf("%s on a budget", dest), Snippet: "How to stretch your budget in " + dest + "."},
			{Title: "Search: " + query},
		}, nil
	case OpScrapePlaces:
		return staticPlaces(dest, CategoryAttraction, 3), nil
	case OpScrapeHotels:
		return staticPlaces(dest, CategoryHotel, 4), nil
	case OpScrapeRestaurants:
		return staticPlaces(dest, CategoryRestaurant, 4), nil
	case OpScrapeReviews:
		places := staticPlaces(dest, CategoryAttraction, 3)
		reviews := make([]Review, 0, len(places)*2)
		for i, p := range places {
			reviews = append(reviews,
				Review{Place: p.Name, Rating: 4.5, Text: "Loved it."},
				Review{Place: p.Name, Rating: float64(3 + i%2), Text: "Decent stop."},
			)
		}
		return reviews, nil
	case OpScrapeEvents:
		return []Event{
			{Name: dest + " Night Market", Date: "weekly"},
			{Name: dest + " Food Festival", Date: "seasonal"},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
}

// staticPlaces derives a stable set of places from the destination name so
// repeated calls (and cache round-trips) always agree.
func staticPlaces(dest, category string, n int) []Place {
	templates := map[string][]string{
		CategoryAttraction: {"Old Quarter", "Grand Museum", "Riverside Park", "Central Market", "Heritage Temple", "Sky Tower"},
		CategoryHotel:      {"Grand Hotel", "Riverside Inn", "City Hostel", "Boutique Stay", "Garden Resort"},
		CategoryRestaurant: {"Street Kitchen", "Noodle House", "Rooftop Dining", "Family Bistro", "Night Grill"},
	}

	names := templates[category]
	if n > len(names) {
		n = len(names)
	}

	seed := 0
	for _, r := range strings.ToLower(dest) {
		seed += int(r)
	}

	places := make([]Place, 0, n)
	for i := 0; i < n; i++ {
		rating := 3.5 + float64((seed+i*3)%15)/10.0 // 3.5 .. 4.9
		places = append(places, Place{
			Name:       fmt.Sprintf("%s %s", dest, names[i]),
			Category:   category,
			City:       dest,
			Rating:     rating,
			PriceLevel: 1 + (seed+i)%4,
		})
	}
	return places
}
