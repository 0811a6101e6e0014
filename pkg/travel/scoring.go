package travel

import (
	"context"
	"fmt"
	"sort"
)

// ScoringService backs the score.* operations with in-process heuristics.
// The workflow treats it exactly like a remote collaborator: it sits behind
// the same Caller contract and its results flow through the same cache, so
// swapping in a real ML service later changes wiring, not stages.
type ScoringService struct{}

func (ScoringService) Call(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case OpScoreRecommend:
		places, _ := params["places"].([]Place)
		return Recommendations{
			Hotels:      topRated(places, CategoryHotel, 3),
			Restaurants: topRated(places, CategoryRestaurant, 3),
			Attractions: topRated(places, CategoryAttraction, 3),
		}, nil

	case OpScoreSentiment:
		reviews, _ := params["reviews"].([]Review)
		return scoreSentiment(reviews), nil

	case OpScoreSimilarity:
		places, _ := params["places"].([]Place)
		return clusterByPrice(places), nil

	case OpScorePrices:
		budget, _ := params["budget"].(int)
		days, _ := params["days"].(int)
		travelers, _ := params["travelers"].(int)
		return forecastPrices(budget, days, travelers), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
}

// topRated returns the n best places of a category, rated 4.0 or better.
func topRated(places []Place, category string, n int) []Place {
	var matching []Place
	for _, p := range places {
		if p.Category == category && p.Rating >= 4.0 {
			matching = append(matching, p)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Rating > matching[j].Rating
	})
	if len(matching) > n {
		matching = matching[:n]
	}
	return matching
}

func scoreSentiment(reviews []Review) SentimentSummary {
	summary := SentimentSummary{Overall: "neutral"}
	if len(reviews) == 0 {
		return summary
	}

	var total float64
	for _, r := range reviews {
		total += r.Rating
		if r.Rating >= 4.0 {
			summary.Positive++
		} else {
			summary.Negative++
		}
	}
	summary.AverageScore = total / float64(len(reviews))
	switch {
	case summary.AverageScore >= 3.5:
		summary.Overall = "positive"
	case summary.AverageScore < 2.5:
		summary.Overall = "negative"
	}
	return summary
}

func clusterByPrice(places []Place) SimilarityClusters {
	var clusters SimilarityClusters
	for _, p := range places {
		switch {
		case p.PriceLevel <= 2:
			clusters.Budget = append(clusters.Budget, p)
		case p.PriceLevel == 3:
			clusters.MidRange = append(clusters.MidRange, p)
		default:
			clusters.Premium = append(clusters.Premium, p)
		}
	}
	return clusters
}

// forecastPrices splits the budget 40/30/20/10 across spending classes.
func forecastPrices(budget, days, travelers int) PriceForecast {
	b := float64(budget)
	forecast := PriceForecast{
		Accommodation:  b * 0.4,
		Food:           b * 0.3,
		Activities:     b * 0.2,
		Transportation: b * 0.1,
	}
	if days > 0 {
		forecast.DailyBudget = b / float64(days)
	}
	if travelers > 0 {
		forecast.PerPerson = b / float64(travelers)
	}
	return forecast
}
