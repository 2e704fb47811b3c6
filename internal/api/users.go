package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Divy1030/Code-Arena-Backend/internal/middleware"
	"github.com/Divy1030/Code-Arena-Backend/internal/rating"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports liveness plus build and uptime info.
func HealthCheck(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":  "ok",
		"service": "code-arena-api",
		"version": version,
		"uptime":  time.Since(startTime).String(),
	}, "OK")
}

// GetMe returns the authenticated user's profile with their rating tier
// and the problems they have fully solved.
func GetMe(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized request")
			return
		}

		solved, err := st.ListSolvedProblemIDs(c.Request.Context(), user.ID)
		if err != nil {
			log.Printf("[USERS] Solved problems lookup failed for user %s: %v", user.ID, err)
		}
		if solved == nil {
			solved = []string{}
		}

		respond(c, http.StatusOK, gin.H{
			"user":           user,
			"tier":           rating.TierFor(user.Rating),
			"solvedProblems": solved,
		}, "Profile fetched")
	}
}
