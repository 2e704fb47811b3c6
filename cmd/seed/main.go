package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/Divy1030/Code-Arena-Backend/internal/config"
	"github.com/Divy1030/Code-Arena-Backend/internal/database"
	"github.com/Divy1030/Code-Arena-Backend/internal/models"
	"github.com/Divy1030/Code-Arena-Backend/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.New(db)
	ctx := context.Background()

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "change-me-in-production" // Default password
		log.Printf("WARNING: Using default seed password. Set SEED_PASSWORD env var in production!")
	}

	users := seedUsers(ctx, st, password)
	problems := seedProblems(ctx, st)
	seedContest(ctx, st, users, problems)

	log.Printf("✓ Seed complete: %d users, %d problems, 1 contest", len(users), len(problems))
}

func seedUsers(ctx context.Context, st *store.Store, password string) []*models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	specs := []struct {
		username string
		rating   int
		games    int
	}{
		{"alice", 1000, 0},
		{"bob", 1180, 12},
		{"carol", 1540, 48},
	}

	out := make([]*models.User, 0, len(specs))
	for _, sp := range specs {
		u := &models.User{
			ID:           uuid.NewString(),
			Username:     sp.username,
			Email:        sp.username + "@example.com",
			PasswordHash: string(hash),
			Rating:       sp.rating,
			GamesPlayed:  sp.games,
		}
		if err := st.CreateUser(ctx, u); err != nil {
			// Already seeded on a previous run: reuse the existing row.
			existing, lookupErr := st.GetUserByUsername(ctx, sp.username)
			if lookupErr != nil {
				log.Fatalf("Failed to seed user %s: %v", sp.username, err)
			}
			log.Printf("User %s already exists, skipping", sp.username)
			out = append(out, existing)
			continue
		}
		log.Printf("✓ Created user %s (rating %d)", u.Username, u.Rating)
		out = append(out, u)
	}
	return out
}

func seedProblems(ctx context.Context, st *store.Store) []*models.Problem {
	problems := []*models.Problem{
		{
			ID:          uuid.NewString(),
			Title:       "Two Sum",
			Description: "Given an array of integers nums and an integer target, return the indices of the two numbers that add up to target. Exactly one solution exists and an element may not be used twice.",
			Difficulty:  "Easy",
			Examples: models.ExampleList{
				{Input: "nums = [2,7,11,15], target = 9", Output: "[0,1]", Explanation: "nums[0] + nums[1] == 9"},
				{Input: "nums = [3,2,4], target = 6", Output: "[1,2]"},
			},
			Constraints: models.StringList{
				"2 <= nums.length <= 10^4",
				"-10^9 <= nums[i] <= 10^9",
				"Exactly one valid answer exists",
			},
			TestCases: models.TestCaseList{
				{Input: "4\n2 7 11 15\n9", ExpectedOutput: "0 1"},
				{Input: "3\n3 2 4\n6", ExpectedOutput: "1 2"},
				{Input: "2\n3 3\n6", ExpectedOutput: "0 1"},
			},
		},
		{
			ID:          uuid.NewString(),
			Title:       "Valid Parentheses",
			Description: "Given a string containing only the characters '(', ')', '{', '}', '[' and ']', determine whether the input is valid: every opening bracket is closed by the same type in the correct order.",
			Difficulty:  "Easy",
			Examples: models.ExampleList{
				{Input: "s = \"()[]{}\"", Output: "true"},
				{Input: "s = \"(]\"", Output: "false"},
			},
			Constraints: models.StringList{
				"1 <= s.length <= 10^4",
				"s consists of parentheses only",
			},
			TestCases: models.TestCaseList{
				{Input: "()[]{}", ExpectedOutput: "true"},
				{Input: "(]", ExpectedOutput: "false"},
				{Input: "([{}])", ExpectedOutput: "true"},
				{Input: "((", ExpectedOutput: "false"},
			},
		},
		{
			ID:          uuid.NewString(),
			Title:       "Longest Substring Without Repeating Characters",
			Description: "Given a string s, find the length of the longest substring without repeating characters.",
			Difficulty:  "Medium",
			Examples: models.ExampleList{
				{Input: "s = \"abcabcbb\"", Output: "3", Explanation: "The answer is \"abc\""},
				{Input: "s = \"bbbbb\"", Output: "1"},
			},
			Constraints: models.StringList{
				"0 <= s.length <= 5 * 10^4",
				"s consists of English letters, digits, symbols and spaces",
			},
			TestCases: models.TestCaseList{
				{Input: "abcabcbb", ExpectedOutput: "3"},
				{Input: "bbbbb", ExpectedOutput: "1"},
				{Input: "pwwkew", ExpectedOutput: "3"},
				{Input: "dvdf", ExpectedOutput: "3"},
			},
		},
	}

	out := make([]*models.Problem, 0, len(problems))
	for _, p := range problems {
		p.MaxScore = len(p.TestCases) * 100
		if err := st.CreateProblem(ctx, p); err != nil {
			log.Fatalf("Failed to seed problem %q: %v", p.Title, err)
		}
		log.Printf("✓ Created problem %q (%s, %d test cases)", p.Title, p.Difficulty, len(p.TestCases))
		out = append(out, p)
	}
	return out
}

func seedContest(ctx context.Context, st *store.Store, users []*models.User, problems []*models.Problem) {
	ids := make(models.StringList, len(problems))
	for i, p := range problems {
		ids[i] = p.ID
	}

	contest := &models.Contest{
		ID:          uuid.NewString(),
		Title:       "CodeArena Weekly #1",
		Description: "Three problems, ninety minutes. Ratings update after the contest ends.",
		StartTime:   time.Now().Add(1 * time.Hour),
		EndTime:     time.Now().Add(1*time.Hour + 90*time.Minute),
		ProblemIDs:  ids,
	}
	if err := st.CreateContest(ctx, contest); err != nil {
		log.Fatalf("Failed to seed contest: %v", err)
	}
	log.Printf("✓ Created contest %q (%d problems)", contest.Title, len(ids))

	for _, u := range users {
		part := &models.ContestParticipant{
			ContestID: contest.ID,
			UserID:    u.ID,
			Problems:  models.ContestProblemList{},
		}
		if err := st.UpsertParticipant(ctx, part); err != nil {
			log.Fatalf("Failed to register %s for contest: %v", u.Username, err)
		}
		log.Printf("✓ Registered %s for %q", u.Username, contest.Title)
	}
}
