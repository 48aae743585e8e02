// Package types contains the read shapes served by the API.
package types

// Entry represents a standings entry.
type Entry struct {
	Rank      int     `json:"rank"`
	AthleteID string  `json:"athlete_id"`
	Score     float64 `json:"score"`
	Gender    string  `json:"gender"`
	BodyMass  float64 `json:"body_mass"`
	Total     float64 `json:"total"`
	Age       int     `json:"age,omitempty"`
	Variant   string  `json:"variant"`
}

// Target is the total an athlete needs to move past the entry ranked
// directly ahead of them.
type Target struct {
	AthleteID     string  `json:"athlete_id"`
	Rank          int     `json:"rank"`
	OpponentID    string  `json:"opponent_id"`
	OpponentScore float64 `json:"opponent_score"`
	// Total is the smallest integer total that beats OpponentScore.
	Total int `json:"total"`
	// Score is what Total would score.
	Score float64 `json:"score"`
}
