package api

import (
	"context"

	"github.com/Divy1030/Code-Arena-Backend/internal/judge"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
	"github.com/Divy1030/Code-Arena-Backend/internal/store"
)

// Store is the persistence surface the HTTP handlers consume.
type Store interface {
	GetProblem(ctx context.Context, id string) (*models.Problem, error)
	ListProblems(ctx context.Context) ([]models.Problem, error)
	GetContest(ctx context.Context, id string) (*models.Contest, error)
	GetParticipant(ctx context.Context, contestID, userID string) (*models.ContestParticipant, error)
	UpsertParticipant(ctx context.Context, p *models.ContestParticipant) error
	AppendContestSubmission(ctx context.Context, contestID, solutionID string) error
	ListParticipants(ctx context.Context, contestID string) ([]store.ParticipantRow, error)
	CreateSolution(ctx context.Context, sol *models.Solution) error
	LatestSolution(ctx context.Context, userID, problemID string) (*models.Solution, error)
	LatestContestSolution(ctx context.Context, userID, problemID, contestID string) (*models.Solution, error)
	AddSolvedProblem(ctx context.Context, userID, problemID string) (bool, error)
	ListSolvedProblemIDs(ctx context.Context, userID string) ([]string, error)
	IncrementRating(ctx context.Context, userID string, delta int) error
	ApplyContestRating(ctx context.Context, userID string, newRating int) error
}

// Judge is the async code-execution surface.
type Judge interface {
	Enqueue(ctx context.Context, req judge.EnqueueRequest) (string, error)
	Poll(ctx context.Context, jobID string) (*judge.PollResult, error)
}
