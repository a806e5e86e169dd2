package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL string        // Base URL of the service
	Deck    string        // Deck to play; empty picks the first listed
	Players int           // Number of concurrent players
	Size    int           // Leaderboard size the server keeps
	Workers int           // Maximum concurrent requests
	Mode    string        // Quiz mode requested from /next
	APIKey  string        // Sent as X-API-Key when set
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every player
}

// Player is one simulated user.
type Player struct {
	Name    string
	Session string
	Drawn   []int
	Score   float64
}

// Entry mirrors a leaderboard row.
type Entry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Date  string  `json:"date"`
}

// Stats holds run statistics.
type Stats struct {
	Players            int
	CardsPerDeck       int
	QuizzesServed      int
	Submissions        int
	Retries            int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
