package steward

import (
	"encoding/json"
	"log/slog"
	"os"
)

const maxRecords = 20

// CycleRecord captures what happened in a single steward cycle.
type CycleRecord struct {
	Day         int    `json:"day"`
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
	CrisisLevel string `json:"crisis_level"`
	Rationale   string `json:"rationale,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CycleMemory manages a ring of recent steward cycle records.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`
	path    string
}

// LoadMemory reads the memory file at path. Returns empty memory if the file
// is missing or unreadable.
func LoadMemory(path string) *CycleMemory {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CycleMemory{path: path}
	}
	var mem CycleMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		slog.Warn("steward memory corrupted, starting fresh", "error", err)
		return &CycleMemory{path: path}
	}
	mem.path = path
	return &mem
}

// Save writes the memory to disk. An empty path keeps it in memory only.
func (m *CycleMemory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal steward memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		slog.Error("failed to write steward memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Last returns the most recent record.
func (m *CycleMemory) Last() (CycleRecord, bool) {
	if len(m.Records) == 0 {
		return CycleRecord{}, false
	}
	return m.Records[len(m.Records)-1], true
}
