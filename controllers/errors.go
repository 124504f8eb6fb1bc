package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var errInternal = errors.New("internal server error")

// RetryQueue receives orders whose confirmation failed on the gateway side.
type RetryQueue interface {
	AddToRetryQueue(code string)
}

// currentActor builds the identity set by the auth middleware.
func currentActor(c *gin.Context) models.Actor {
	return models.Actor{
		UserID: c.GetString(middlewares.ContextUserID),
		Role:   c.GetString(middlewares.ContextRole),
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, err error) {
	var stockErr *services.StockConflictError
	if errors.As(err, &stockErr) {
		utils.RespondErrorWithData(c, http.StatusConflict, err, gin.H{
			"product_id":    stockErr.ProductID,
			"current_stock": stockErr.CurrentStock,
			"attempted":     stockErr.Attempted,
		})
		return
	}

	code := statusForError(err)
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.RespondError(c, code, errInternal)
		return
	}
	utils.RespondError(c, code, err)
}
