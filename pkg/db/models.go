package db

// ScheduleRun represents a stored schedule generation run
type ScheduleRun struct {
	ID          string
	Seed        int64
	RangeStart  string // Format: "2006-01-02"
	RangeEnd    string // Format: "2006-01-02"
	ShiftCount  int
	GeneratedAt string // RFC3339, UTC
}

// Assignment represents one shift of a stored run and the physician holding it
type Assignment struct {
	ID         string
	RunID      string
	ShiftIndex int
	Kind       string
	Label      string
	ShiftDate  string // Format: "2006-01-02"
	StartsAt   string // RFC3339
	EndsAt     string // RFC3339
	Physician  string
	Included   bool
}
