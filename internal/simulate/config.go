// Package simulate drives a running standings server with generated lift
// results and checks what it serves against a local scoring engine.
package simulate

import (
	"errors"
	"time"

	"github.com/okian/gamx/internal/domain/scoring"
)

// Defaults used when a Config field is left zero.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultAthletes     = 1000
	DefaultWorkers      = 16
	DefaultTopN         = 50
	DefaultTimeout      = 30 * time.Second
	DefaultWaitTimeout  = 2 * time.Minute
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	// ErrVerification is returned when the served standings disagree with the
	// local engine.
	ErrVerification = errors.New("standings verification failed")
	// ErrNotProcessed is returned when the server did not apply every
	// accepted result before the wait timeout.
	ErrNotProcessed = errors.New("results not processed in time")
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string          // Base URL of the service
	Athletes     int             // Number of athletes (one result each)
	Duplicates   int             // Results resubmitted to exercise idempotency
	Variant      scoring.Variant // Variant every result is scored in
	Workers      int             // Concurrent HTTP requests
	TopN         int             // Leaderboard entries to fetch
	Timeout      time.Duration   // HTTP request timeout
	WaitTimeout  time.Duration   // How long to wait for the pipeline to drain
	PollInterval time.Duration   // How often /stats is polled while waiting
	Seed         uint64          // Generator seed; zero picks one from the clock
	OutputFile   string          // Optional JSON dump of the generated results

	// Engine recomputes expected scores. Nil uses the bundled tables.
	Engine *scoring.Engine
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Athletes <= 0 {
		out.Athletes = DefaultAthletes
	}
	if out.Duplicates < 0 {
		out.Duplicates = 0
	}
	out.Duplicates = min(out.Duplicates, out.Athletes)
	if !out.Variant.Valid() {
		out.Variant = scoring.VariantSenior
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.TopN <= 0 {
		out.TopN = DefaultTopN
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.WaitTimeout <= 0 {
		out.WaitTimeout = DefaultWaitTimeout
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.Seed == 0 {
		out.Seed = uint64(time.Now().UnixNano())
	}
	return out
}

// Result is the wire shape of POST /results.
type Result struct {
	ResultID  string  `json:"result_id"`
	AthleteID string  `json:"athlete_id"`
	Gender    string  `json:"gender"`
	BodyMass  float64 `json:"body_mass"`
	Total     float64 `json:"total"`
	Age       int     `json:"age,omitempty"`
	Variant   string  `json:"variant"`
	TS        string  `json:"ts"`

	// expected is the locally computed score at two decimals.
	expected float64
	gender   scoring.Gender
}

// Report holds run statistics.
type Report struct {
	Seed               uint64
	Generated          int
	Submitted          int
	Accepted           int
	Duplicate          int
	Failed             int
	Processed          int64
	RankingsRetrieved  int
	LeaderboardEntries int
	TargetChecked      bool
	Mismatches         []string
	StartTime          time.Time
	Duration           time.Duration
}
