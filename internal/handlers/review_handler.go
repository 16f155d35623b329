package handlers

import (
	"errors"
	"net/http"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/gin-gonic/gin"

	"github.com/zeloura/api/internal/helpers"
	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/services"
	"github.com/zeloura/api/internal/store"
)

type submitReviewRequest struct {
	ProductID string   `json:"product_id" binding:"required"`
	Rating    int      `json:"rating" binding:"required"`
	Title     string   `json:"title"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
	Size      string   `json:"size"`
	Color     string   `json:"color"`
}

func SubmitReview(rs *services.ReviewService, cld *cloudinary.Cloudinary) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req submitReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		review := models.Review{
			ProductID: req.ProductID,
			UserID:    claims.UserID,
			UserName:  claims.DisplayName,
			Rating:    req.Rating,
			Title:     req.Title,
			Comment:   req.Comment,
			Images:    req.Images,
			Size:      req.Size,
			Color:     req.Color,
		}

		// Validate before touching Cloudinary so a malformed draft costs
		// nothing.
		review.Sanitize()
		if err := review.ValidateDraft(); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		if len(review.Images) > 0 && cld != nil {
			urls, err := helpers.UploadImages(c.Request.Context(), cld, review.Images, helpers.ReviewImageFolder)
			if err != nil {
				c.JSON(http.StatusInternalServerError, helpers.ErrorResponse("failed to upload review images"))
				return
			}
			review.Images = urls
		}

		if err := rs.Submit(c.Request.Context(), &review); err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, helpers.SuccessResponse(review, "Review submitted and awaiting moderation"))
	}
}

func ListProductReviews(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")
		if productID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("product ID is required"))
			return
		}

		sortBy := store.SortOption(c.DefaultQuery("sort", string(store.SortNewest)))
		filterBy := store.FilterOption(c.DefaultQuery("filter", string(store.FilterAll)))

		reviews, err := rs.ListForProduct(productID, sortBy, filterBy)
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(reviews, ""))
	}
}

func ProductReviewSummary(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")
		if productID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("product ID is required"))
			return
		}

		summary, err := rs.Summary(c.Request.Context(), productID)
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(summary, ""))
	}
}

func MarkReviewHelpful(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewID := c.Param("id")
		if reviewID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("review ID is required"))
			return
		}

		if err := rs.MarkHelpful(c.Request.Context(), reviewID); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, models.ErrReviewNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "Marked as helpful"))
	}
}

type reportReviewRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func ReportReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		reviewID := c.Param("id")
		if reviewID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("review ID is required"))
			return
		}

		var req reportReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		if err := rs.Report(c.Request.Context(), reviewID, req.Reason, claims.UserID); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, models.ErrReviewNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "Review reported"))
	}
}

// currentUser pulls the enhanced claims set by the auth middleware.
func currentUser(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	userClaims, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("unauthorized"))
		return nil, false
	}

	claims, ok := userClaims.(*helpers.EnhancedClaims)
	if !ok {
		c.JSON(http.StatusInternalServerError, helpers.ErrorResponse("invalid user claims"))
		return nil, false
	}

	return claims, true
}
