package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Divy1030/Code-Arena-Backend/internal/judge"
	"github.com/Divy1030/Code-Arena-Backend/internal/middleware"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
)

type codeRequest struct {
	Code      string              `json:"code"`
	Language  string              `json:"language"`
	ProblemID string              `json:"problemId"`
	TestCases models.TestCaseList `json:"testCases"`
}

// RunCode queues a run-mode job against the caller's own test cases and
// answers 202 with the job id to poll.
func RunCode(jobs Judge) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized request")
			return
		}

		var req codeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		jobID, err := jobs.Enqueue(c.Request.Context(), judge.EnqueueRequest{
			Mode:      judge.ModeRun,
			Language:  req.Language,
			Code:      req.Code,
			UserID:    user.ID,
			ProblemID: req.ProblemID,
			TestCases: req.TestCases,
		})
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respond(c, http.StatusAccepted, gin.H{"jobId": jobID}, "Job queued")
	}
}

// SubmitCode queues a submit-mode job against the problem's stored test
// cases. A completed job persists a Solution on first poll.
func SubmitCode(st Store, jobs Judge) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized request")
			return
		}

		var req codeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ProblemID == "" {
			respondError(c, http.StatusBadRequest, "problemId is required")
			return
		}

		problem, err := st.GetProblem(c.Request.Context(), req.ProblemID)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		jobID, err := jobs.Enqueue(c.Request.Context(), judge.EnqueueRequest{
			Mode:      judge.ModeSubmit,
			Language:  req.Language,
			Code:      req.Code,
			UserID:    user.ID,
			ProblemID: problem.ID,
			TestCases: problem.TestCases,
		})
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respond(c, http.StatusAccepted, gin.H{"jobId": jobID}, "Job queued")
	}
}

// CodeResult polls a queued job. Unknown or expired ids answer 404.
func CodeResult(jobs Judge) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := jobs.Poll(c.Request.Context(), c.Param("jobId"))
		if err != nil {
			if errors.Is(err, judge.ErrJobNotFound) {
				respondError(c, http.StatusNotFound, err.Error())
				return
			}
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		respond(c, http.StatusOK, res, "Job status fetched")
	}
}
