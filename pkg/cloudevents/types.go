package cloudevents

import (
	"time"
)

// Event types emitted by the simulator
const (
	DaySimulated = "slotting.simulation.day-simulated"
	RunCompleted = "slotting.simulation.run-completed"
	RunFailed    = "slotting.simulation.run-failed"
)

// Event sources
const (
	SourceSimulationAPI    = "/slotting/simulation-api"
	SourceSimulationWorker = "/slotting/simulation-worker"
)

// SimulationCloudEvent is a CloudEvents v1.0 envelope
type SimulationCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extensions
	CorrelationID string `json:"slottingcorrelationid,omitempty"`
	RunID         string `json:"slottingrunid,omitempty"`
	Strategy      string `json:"slottingstrategy,omitempty"`
	WorkflowID    string `json:"slottingworkflowid,omitempty"`
}

// DaySimulatedData is the payload of a DaySimulated event
type DaySimulatedData struct {
	RunID              string    `json:"runId"`
	Date               time.Time `json:"date"`
	Length             float64   `json:"length"`
	PicklistCount      int       `json:"picklistCount"`
	PicklistEntryCount int       `json:"picklistEntryCount"`
	HighToGroundCount  int       `json:"rearrangementCountHighzoneGroundzone"`
	HighToGroundLength float64   `json:"rearrangementLengthHighzoneGroundzone"`
	InGroundZoneCount  int       `json:"rearrangementCountInGroundzone"`
	InGroundZoneLength float64   `json:"rearrangementLengthInGroundzone"`
}

// RunFinishedData is the payload of RunCompleted and RunFailed events
type RunFinishedData struct {
	RunID       string    `json:"runId"`
	Status      string    `json:"status"`
	Days        int       `json:"days"`
	TotalLength float64   `json:"totalLength"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}
