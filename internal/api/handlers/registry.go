package handlers

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ScanRecord is one entry in the active-scan registry. The registry is
// supplementary observability bookkeeping: the scan path itself is
// stateless and does not depend on it.
type ScanRecord struct {
	ID           uuid.UUID  `json:"scan_id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	TargetsFound int        `json:"targets_found"`
	OutputFile   string     `json:"output_file,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ScanRegistry tracks in-flight and finished scans for the /scans
// endpoint. Safe for concurrent use.
type ScanRegistry struct {
	mu    sync.RWMutex
	scans map[uuid.UUID]*ScanRecord
}

// NewScanRegistry creates an empty scan registry.
func NewScanRegistry() *ScanRegistry {
	return &ScanRegistry{
		scans: make(map[uuid.UUID]*ScanRecord),
	}
}

// Start records a newly started scan and returns its ID.
func (r *ScanRegistry) Start() uuid.UUID {
	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans[id] = &ScanRecord{
		ID:        id,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	return id
}

// Finish records the outcome of a scan.
func (r *ScanRegistry) Finish(id uuid.UUID, status string, targets int, outputFile, errMsg string) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.scans[id]
	if !ok {
		return
	}
	record.Status = status
	record.FinishedAt = &now
	record.TargetsFound = targets
	record.OutputFile = outputFile
	record.Error = errMsg
}

// Snapshot returns a copy of all records, newest first.
func (r *ScanRegistry) Snapshot() []ScanRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]ScanRecord, 0, len(r.scans))
	for _, record := range r.scans {
		records = append(records, *record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records
}
