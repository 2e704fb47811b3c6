package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Divy1030/Code-Arena-Backend/internal/judge"
	"github.com/Divy1030/Code-Arena-Backend/internal/middleware"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
	"github.com/Divy1030/Code-Arena-Backend/internal/rating"
	"github.com/Divy1030/Code-Arena-Backend/internal/store"
)

// firstSolveBonus is the flat rating bump for the first full solve of a
// problem. Contest-wide Elo runs separately through
// UpdateContestRatings.
const firstSolveBonus = 10

type contestSubmission struct {
	Score        *int   `json:"score"`
	SolutionCode string `json:"solutionCode"`
	LanguageUsed string `json:"languageUsed"`
}

type leaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Rating         int    `json:"rating"`
	Score          int    `json:"score"`
	ProblemsSolved int    `json:"problemsSolved"`
}

// SubmitContestSolution records a pre-scored contest submission: the
// Solution row, the contest submission log, the participant's per-problem
// standing (scores never go down) and the first-solve rating bump.
func SubmitContestSolution(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized request")
			return
		}
		contestID := c.Param("contestId")
		problemID := c.Param("problemId")

		var req contestSubmission
		if err := c.ShouldBindJSON(&req); err != nil || req.Score == nil || req.SolutionCode == "" || req.LanguageUsed == "" {
			respondError(c, http.StatusBadRequest, "score, solutionCode and languageUsed are required")
			return
		}
		// Solutions are immutable, so a bad language would be permanent.
		req.LanguageUsed = strings.ToLower(req.LanguageUsed)
		if !judge.SupportedLanguage(req.LanguageUsed) {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("language %q is not supported", req.LanguageUsed))
			return
		}

		ctx := c.Request.Context()
		if _, err := st.GetContest(ctx, contestID); err != nil {
			respondStoreError(c, err)
			return
		}

		participant, err := st.GetParticipant(ctx, contestID, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, http.StatusForbidden, "not a contest participant")
				return
			}
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}

		problem, err := st.GetProblem(ctx, problemID)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		actualMaxScore := problem.EffectiveMaxScore()

		sol := &models.Solution{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			ContestID:    &contestID,
			ProblemID:    problem.ID,
			SolutionCode: req.SolutionCode,
			LanguageUsed: req.LanguageUsed,
			Score:        *req.Score,
			MaxScore:     actualMaxScore,
			TestResults:  models.TestResultList{},
			CreatedAt:    time.Now(),
		}
		if err := st.CreateSolution(ctx, sol); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to record solution")
			return
		}
		if err := st.AppendContestSubmission(ctx, contestID, sol.ID); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to record submission")
			return
		}

		applyProblemScore(participant, problem.ID, *req.Score, actualMaxScore)
		if err := st.UpsertParticipant(ctx, participant); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to update standing")
			return
		}

		if *req.Score >= actualMaxScore {
			awardFirstSolve(ctx, st, user.ID, problem.ID)
		}

		respond(c, http.StatusOK, gin.H{
			"solution":     sol,
			"contestScore": participant.Score,
		}, "Solution recorded")
	}
}

// applyProblemScore upserts the participant's entry for the problem,
// keeping the best score and never downgrading a correct status, then
// recomputes the participation total.
func applyProblemScore(p *models.ContestParticipant, problemID string, score, maxScore int) {
	status := models.ContestAttempted
	if score >= maxScore {
		status = models.ContestCorrect
	}

	found := false
	for i := range p.Problems {
		if p.Problems[i].ProblemID != problemID {
			continue
		}
		if score > p.Problems[i].Score {
			p.Problems[i].Score = score
		}
		if status == models.ContestCorrect {
			p.Problems[i].SubmissionStatus = models.ContestCorrect
		}
		found = true
		break
	}
	if !found {
		p.Problems = append(p.Problems, models.ContestProblem{
			ProblemID:        problemID,
			Score:            score,
			SubmissionStatus: status,
		})
	}

	total := 0
	for _, entry := range p.Problems {
		total += entry.Score
	}
	p.Score = total
}

// awardFirstSolve bumps the rating once per (user, problem). The insert
// into solved_problems decides the winner: only the call that created
// the row awards the bonus, so concurrent full-score submissions cannot
// double-pay. Failures are logged; the submission itself already
// succeeded.
func awardFirstSolve(ctx context.Context, st Store, userID, problemID string) {
	inserted, err := st.AddSolvedProblem(ctx, userID, problemID)
	if err != nil {
		log.Printf("[CONTEST] Failed to mark problem %s solved for user %s: %v", problemID, userID, err)
		return
	}
	if !inserted {
		return
	}
	if err := st.IncrementRating(ctx, userID, firstSolveBonus); err != nil {
		log.Printf("[CONTEST] Failed to apply first-solve bonus for user %s: %v", userID, err)
	}
}

// GetProblem returns one problem with its canonical solution. When the
// caller is authenticated their most recent attempt is attached.
func GetProblem(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		problem, err := st.GetProblem(ctx, c.Param("id"))
		if err != nil {
			respondStoreError(c, err)
			return
		}

		data := gin.H{"problem": problem}
		if user, ok := middleware.CurrentUser(c); ok {
			latest, err := st.LatestSolution(ctx, user.ID, problem.ID)
			switch {
			case err == nil:
				data["latestSolution"] = latest
			case !errors.Is(err, store.ErrNotFound):
				log.Printf("[CONTEST] Latest solution lookup failed for user %s: %v", user.ID, err)
			}
		}
		respond(c, http.StatusOK, data, "Problem fetched")
	}
}

// GetContestProblem returns a contest problem plus the caller's latest
// solution inside that contest. Participants only.
func GetContestProblem(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized request")
			return
		}
		contestID := c.Param("id")
		problemID := c.Param("problemId")

		ctx := c.Request.Context()
		if _, err := st.GetContest(ctx, contestID); err != nil {
			respondStoreError(c, err)
			return
		}
		if _, err := st.GetParticipant(ctx, contestID, user.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, http.StatusForbidden, "not a contest participant")
				return
			}
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}

		problem, err := st.GetProblem(ctx, problemID)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		data := gin.H{"problem": problem}
		latest, err := st.LatestContestSolution(ctx, user.ID, problemID, contestID)
		switch {
		case err == nil:
			data["latestSolution"] = latest
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("[CONTEST] Latest contest solution lookup failed for user %s: %v", user.ID, err)
		}
		respond(c, http.StatusOK, data, "Problem fetched")
	}
}

// GetLeaderboard ranks a contest's participants by score descending.
// Ranks run 1..n with ties kept in join order.
func GetLeaderboard(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		contestID := c.Param("contestId")
		ctx := c.Request.Context()

		if _, err := st.GetContest(ctx, contestID); err != nil {
			respondStoreError(c, err)
			return
		}
		rows, err := st.ListParticipants(ctx, contestID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}

		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })

		entries := make([]leaderboardEntry, 0, len(rows))
		for i, row := range rows {
			solved := 0
			for _, p := range row.Problems {
				if p.SubmissionStatus == models.ContestCorrect {
					solved++
				}
			}
			entries = append(entries, leaderboardEntry{
				Rank:           i + 1,
				UserID:         row.UserID,
				Username:       row.Username,
				Rating:         row.Rating,
				Score:          row.Score,
				ProblemsSolved: solved,
			})
		}
		respond(c, http.StatusOK, gin.H{"leaderboard": entries}, "Leaderboard fetched")
	}
}

// GetAllProblems lists every problem without test cases or solutions.
func GetAllProblems(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		problems, err := st.ListProblems(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		respond(c, http.StatusOK, gin.H{"problems": problems}, "Problems fetched")
	}
}

// UpdateContestRatings runs the contest Elo recompute over the final
// standings and persists every participant's new rating.
func UpdateContestRatings(st Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		contestID := c.Param("contestId")
		ctx := c.Request.Context()

		if _, err := st.GetContest(ctx, contestID); err != nil {
			respondStoreError(c, err)
			return
		}
		rows, err := st.ListParticipants(ctx, contestID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "internal server error")
			return
		}
		if len(rows) == 0 {
			respond(c, http.StatusOK, gin.H{"changes": map[string]rating.Change{}}, "No participants to rate")
			return
		}

		standings := make([]rating.Standing, 0, len(rows))
		for _, row := range rows {
			standings = append(standings, rating.Standing{
				UserID:             row.UserID,
				Rating:             row.Rating,
				ContestGamesPlayed: row.ContestGamesPlayed,
				Score:              row.Score,
			})
		}

		changes := rating.ContestChanges(standings)
		for userID, change := range changes {
			if err := st.ApplyContestRating(ctx, userID, change.NewRating); err != nil {
				log.Printf("[CONTEST] Failed to apply contest rating for user %s: %v", userID, err)
			}
		}
		respond(c, http.StatusOK, gin.H{"changes": changes}, "Contest ratings updated")
	}
}
