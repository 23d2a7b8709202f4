package backend

// Remote endpoints, relative to the configured base URL
const (
	pathFlights        = "flights"
	pathRuns           = "runs"
	pathStaff          = "staff/assignments"
	pathAssign         = "flight_runs/assign"
	pathUpdateLayout   = "runs/update_layout"
	pathGenerate       = "assignments/generate"
	pathAutoAssignRuns = "runs/auto_assign"
)

type assignRequest struct {
	RunID    string `json:"run_id"`
	FlightID string `json:"flight_id"`
}

type generateRequest struct {
	Date                string `json:"date"`
	RespectExistingRuns bool   `json:"respect_existing_runs"`
}

type autoAssignRunsRequest struct {
	Date    string `json:"date"`
	Airline string `json:"airline"`
}

// GenerateResult is the reply of assignments/generate
type GenerateResult struct {
	Assigned            int      `json:"assigned"`
	UnassignedFlightIDs []string `json:"unassigned_flight_ids"`
	Mode                string   `json:"mode,omitempty"`
}

// AutoAssignSummary is the reply of runs/auto_assign
type AutoAssignSummary struct {
	AssignedFlights   int    `json:"assigned_flights"`
	TotalFlights      int    `json:"total_flights"`
	UnassignedFlights int    `json:"unassigned_flights"`
	FullTimeStaff     int    `json:"full_time_staff"`
	PartTimeStaff     int    `json:"part_time_staff"`
	Reason            string `json:"reason,omitempty"`
}
