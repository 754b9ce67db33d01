package model

import "time"

// Status is the lifecycle state of a recommendation.
type Status string

const (
	StatusActive    Status = "Active"
	StatusTargetHit Status = "Target Hit"
	StatusSLHit     Status = "SL Hit"
	StatusArchived  Status = "Archived"
)

// Terminal reports whether s is a resolved outcome (Target Hit or SL Hit).
func (s Status) Terminal() bool {
	return s == StatusTargetHit || s == StatusSLHit
}

// DateLayout is the day-granular format of DateAdded.
const DateLayout = "2006-01-02"

// Recommendation is the persisted buy call and its tracking state.
type Recommendation struct {
	ID        int64
	Market    Market
	Symbol    string
	DateAdded time.Time

	EntryPrice    float64
	TargetPrice   float64
	StopLoss      float64
	TargetPct     float64
	SLPct         float64
	EstimatedDays int
	RiskReward    float64

	CurrentPrice     float64
	MaxPrice         float64
	MinPrice         float64
	DaysElapsed      int
	CurrentReturnPct float64
	Status           Status
	// Outcome keeps Target Hit / SL Hit after the row is archived.
	Outcome   Status
	HitDate   *time.Time
	ExitPrice float64

	SelectionReason  string
	Sector           string
	RiskLevel        string
	TechScore        float64
	VolatilityBucket string
	FallbackUsed     bool

	CreatedAt   time.Time
	LastUpdated time.Time
}

// Completed reports whether the row reached a target or stop, archived or not.
func (r *Recommendation) Completed() bool {
	return r.Outcome.Terminal() || r.Status.Terminal()
}

// ResolvedOutcome returns the terminal status regardless of archiving.
func (r *Recommendation) ResolvedOutcome() Status {
	if r.Status.Terminal() {
		return r.Status
	}
	return r.Outcome
}

// Candidate is a scan result ready to be stored as a recommendation.
type Candidate struct {
	Symbol           string
	Sector           string
	EntryPrice       float64
	TargetPrice      float64
	StopLoss         float64
	TargetPct        float64
	SLPct            float64
	EstimatedDays    int
	RiskReward       float64
	Strength         float64
	Rationale        []string
	VolatilityBucket string
	RiskLevel        string
	FallbackUsed     bool
	DateAdded        time.Time
}
