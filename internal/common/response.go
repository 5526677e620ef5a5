package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	FailWithDetails(c, httpStatus, code, msg, "")
}

func FailWithDetails(c *gin.Context, httpStatus int, code int, msg, details string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Code: code, Message: msg, Details: details})
}
