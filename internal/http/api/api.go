package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/azaan/internal/http/middleware"
)

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func NewError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type HandlerFuncWithAuth func(ctx *gin.Context, subject string) (any, *APIError)
type HandlerFunc func(ctx *gin.Context) (any, *APIError)

func Respond(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusOK, Response{Status: http.StatusOK, Success: true, Data: data})
}

func Fail(ctx *gin.Context, err *APIError) {
	ctx.AbortWithStatusJSON(err.Code, Response{Status: err.Code, Success: false, Message: err.Message})
}

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		subject, ok := middleware.GetSubject(ctx)
		if !ok {
			Fail(ctx, NewError(http.StatusUnauthorized, "unauthorized"))
			return
		}

		result, apiErr := h(ctx, subject)
		if apiErr != nil {
			Fail(ctx, apiErr)
			return
		}
		Respond(ctx, result)
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			Fail(ctx, apiErr)
			return
		}
		Respond(ctx, result)
	}
}
