package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Divy1030/Code-Arena-Backend/internal/store"
)

// respond writes the success envelope every endpoint shares.
func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"statusCode": status,
		"data":       data,
		"message":    message,
		"success":    status < 400,
	})
}

// respondError writes the error envelope.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"statusCode": status,
		"message":    message,
		"success":    false,
		"errors":     []string{message},
	})
}

// respondStoreError maps store lookups onto 404 versus 500.
func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, 404, err.Error())
		return
	}
	respondError(c, 500, "internal server error")
}
