package store

import (
	"math"

	"github.com/zeloura/api/internal/models"
)

// ReviewSummary is the per-product aggregate derived from approved reviews
// only. It is computed on demand, never stored.
type ReviewSummary struct {
	ProductID          string      `json:"product_id"`
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// ReviewStats is the admin-dashboard aggregate across all reviews
// regardless of status.
type ReviewStats struct {
	Total        int `json:"total"`
	Approved     int `json:"approved"`
	Pending      int `json:"pending"`
	Rejected     int `json:"rejected"`
	Flagged      int `json:"flagged"`
	ApprovalRate int `json:"approval_rate"`
}

// Summarize computes the rating summary for one product from the given
// review set. Only approved reviews for the product contribute; a product
// with no approved reviews yields a zero summary with an all-zero histogram.
func Summarize(reviews []models.Review, productId string) ReviewSummary {
	summary := ReviewSummary{
		ProductID:          productId,
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	total := 0
	sum := 0
	for _, r := range reviews {
		if r.ProductID != productId || !r.Visible() {
			continue
		}
		total++
		sum += r.Rating

		// Bucket by the nearest star in case a non-integer rating ever
		// sneaks into the stored data.
		star := int(math.Round(float64(r.Rating)))
		if star >= 1 && star <= 5 {
			summary.RatingDistribution[star]++
		}
	}

	if total == 0 {
		return summary
	}

	summary.TotalReviews = total
	summary.AverageRating = round1(float64(sum) / float64(total))
	return summary
}

// Tally counts reviews by status and derives the approval rate as a
// percentage rounded to the nearest integer.
func Tally(reviews []models.Review) ReviewStats {
	stats := ReviewStats{}
	for _, r := range reviews {
		stats.Total++
		switch r.Status {
		case models.ReviewStatusApproved:
			stats.Approved++
		case models.ReviewStatusPending:
			stats.Pending++
		case models.ReviewStatusRejected:
			stats.Rejected++
		case models.ReviewStatusFlagged:
			stats.Flagged++
		}
	}

	if stats.Total > 0 {
		stats.ApprovalRate = int(math.Round(float64(stats.Approved) / float64(stats.Total) * 100))
	}
	return stats
}

// round1 rounds to one decimal place, halves away from zero.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
