package domain

import (
	"fmt"
	"time"
)

// SimulationRequest configures one multi-day simulation run
type SimulationRequest struct {
	Strategy            Strategy  `json:"strategy" bson:"strategy"`
	StartDate           time.Time `json:"startDate" bson:"startDate"`
	NumberOfDays        int       `json:"numberOfDays" bson:"numberOfDays"`
	BetterPicklists     bool      `json:"betterPicklists" bson:"betterPicklists"`
	NumberOfClasses     int       `json:"numberOfClasses" bson:"numberOfClasses"`
	OptimizedGroundZone bool      `json:"optimizedGroundzone" bson:"optimizedGroundzone"`
	ExactForecast       bool      `json:"exactForecast" bson:"exactForecast"`
	Seed                int64     `json:"seed,omitempty" bson:"seed,omitempty"`
}

// Validate checks the request and fills defaults
func (r *SimulationRequest) Validate() error {
	if !r.Strategy.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, r.Strategy)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidRequest)
	}
	if r.NumberOfDays < 1 {
		return fmt.Errorf("%w: numberOfDays must be positive", ErrInvalidRequest)
	}
	if r.NumberOfClasses == 0 {
		r.NumberOfClasses = 2
	}
	if r.NumberOfClasses < 1 {
		return fmt.Errorf("%w: numberOfClasses must be positive", ErrInvalidRequest)
	}
	return nil
}

// DayDate returns the calendar date of day i of the run
func (r SimulationRequest) DayDate(i int) time.Time {
	return r.StartDate.AddDate(0, 0, i)
}

// SimulationResult aggregates the metrics of one simulated day
type SimulationResult struct {
	Date                                  time.Time `json:"date" bson:"date"`
	Length                                float64   `json:"length" bson:"length"`
	PicklistEntryCount                    int       `json:"picklistEntryCount" bson:"picklistEntryCount"`
	PicklistCount                         int       `json:"picklistCount" bson:"picklistCount"`
	RearrangementCountHighzoneGroundzone  int       `json:"rearrangementCountHighzoneGroundzone" bson:"rearrangementCountHighzoneGroundzone"`
	RearrangementLengthHighzoneGroundzone float64   `json:"rearrangementLengthHighzoneGroundzone" bson:"rearrangementLengthHighzoneGroundzone"`
	RearrangementCountInGroundzone        int       `json:"rearrangementCountInGroundzone" bson:"rearrangementCountInGroundzone"`
	RearrangementLengthInGroundzone       float64   `json:"rearrangementLengthInGroundzone" bson:"rearrangementLengthInGroundzone"`
}

// RunState is the mutable strategy state scoped to one simulation run
type RunState struct {
	// SalesRankMonth is the first day of the month ranks were last computed for
	SalesRankMonth  time.Time `json:"salesRankMonth"`
	ClassesAssigned bool      `json:"classesAssigned"`
}

// NewRunState returns the state of a fresh run
func NewRunState() *RunState {
	return &RunState{}
}

// NeedsSalesRankRefresh reports whether date falls into a month not yet ranked
func (s *RunState) NeedsSalesRankRefresh(date time.Time) bool {
	if s.SalesRankMonth.IsZero() {
		return true
	}
	return s.SalesRankMonth.Year() != date.Year() || s.SalesRankMonth.Month() != date.Month()
}

// MarkSalesRanked records that ranks were computed for date's month
func (s *RunState) MarkSalesRanked(date time.Time) {
	s.SalesRankMonth = time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// RunStatus is the lifecycle state of a persisted simulation run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SimulationRun is the persisted record of a simulation
type SimulationRun struct {
	ID          string             `json:"id" bson:"_id"`
	Request     SimulationRequest  `json:"request" bson:"request"`
	Status      RunStatus          `json:"status" bson:"status"`
	Results     []SimulationResult `json:"results" bson:"results"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt   time.Time          `json:"startedAt" bson:"startedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// NewSimulationRun starts a run record
func NewSimulationRun(id string, req SimulationRequest) *SimulationRun {
	return &SimulationRun{
		ID:        id,
		Request:   req,
		Status:    RunStatusRunning,
		Results:   make([]SimulationResult, 0, req.NumberOfDays),
		StartedAt: time.Now().UTC(),
	}
}

// Complete marks the run as finished
func (r *SimulationRun) Complete() {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
}

// Fail marks the run as failed with the cause
func (r *SimulationRun) Fail(err error) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.Error = err.Error()
	r.CompletedAt = &now
}

// TotalLength sums the route length over all simulated days
func (r *SimulationRun) TotalLength() float64 {
	total := 0.0
	for _, result := range r.Results {
		total += result.Length
	}
	return total
}

// DistanceResult is a distance/speed query between two slot codes
type DistanceResult struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Distance    float64 `json:"distance"`
	Time        int     `json:"time"`
	Speed       float64 `json:"speed"`
}

// SaleFigureStatistics compares historic with actual top sellers
type SaleFigureStatistics struct {
	IntersectionCount       int     `json:"intersectionCount"`
	AverageRankDisplacement float64 `json:"averageRankDisplacement"`
}
