package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zeloura/api/internal/helpers"
	"github.com/zeloura/api/internal/models"
	"github.com/zeloura/api/internal/services"
)

func ModerationQueue(ms *services.ModerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentAdmin(c); !ok {
			return
		}

		reviews, err := ms.Queue(c.Query("status"))
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(reviews, ""))
	}
}

func ReviewStats(ms *services.ModerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentAdmin(c); !ok {
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(ms.Stats(), ""))
	}
}

type moderateReviewRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject flag"`
	Note   string `json:"note"`
}

func ModerateReview(ms *services.ModerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c)
		if !ok {
			return
		}

		reviewID := c.Param("id")
		if reviewID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("review ID is required"))
			return
		}

		var req moderateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		review, err := ms.Moderate(c.Request.Context(), admin, reviewID, models.ModerationAction(req.Action), req.Note)
		if err != nil {
			c.JSON(moderationErrorStatus(err), helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusOK, helpers.SuccessResponse(review, "Review moderated"))
	}
}

type replyRequest struct {
	Message string `json:"message" binding:"required"`
}

func ReplyToReview(ms *services.ModerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c)
		if !ok {
			return
		}

		reviewID := c.Param("id")
		if reviewID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("review ID is required"))
			return
		}

		var req replyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		reply, err := ms.Reply(c.Request.Context(), admin, reviewID, req.Message)
		if err != nil {
			c.JSON(moderationErrorStatus(err), helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, helpers.SuccessResponse(reply, "Reply added"))
	}
}

func moderationErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrReviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// currentAdmin pulls the admin principal resolved by the admin middleware.
func currentAdmin(c *gin.Context) (*models.AdminUser, bool) {
	adminValue, exists := c.Get("admin")
	if !exists {
		c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("unauthorized"))
		return nil, false
	}

	admin, ok := adminValue.(*models.AdminUser)
	if !ok {
		c.JSON(http.StatusInternalServerError, helpers.ErrorResponse("invalid admin principal"))
		return nil, false
	}

	return admin, true
}
