package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guildhall-backend/shared/apperrors"
)

// statusForKind maps the domain error taxonomy onto HTTP statuses.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindUnauthorized:
		return http.StatusForbidden
	case apperrors.KindInvalidArgument:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindAlreadyExists:
		return http.StatusConflict
	case apperrors.KindInvalidState, apperrors.KindGuildNotActive,
		apperrors.KindCapacityExceeded, apperrors.KindTooManyGuilds,
		apperrors.KindCooldownActive:
		return http.StatusConflict
	case apperrors.KindSessionMismatch:
		return http.StatusUnauthorized
	case apperrors.KindRouting:
		return http.StatusNotFound
	case apperrors.KindPolicy:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	ctx.JSON(statusForKind(kind), gin.H{
		"error":   string(kind),
		"message": err.Error(),
		"details": apperrors.DetailsOf(err),
	})
}
