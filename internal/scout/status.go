package scout

import (
	"sync"
	"time"
)

type Status struct {
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastAdded int    `json:"last_added"`
	Running   bool   `json:"running"`
}

// StatusTracker records the most recent scouting run for the dashboard.
type StatusTracker struct {
	mu sync.Mutex
	st Status
}

// Begin marks a run as started. It returns false if one is already running.
func (t *StatusTracker) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st.Running {
		return false
	}
	t.st.Running = true
	t.st.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	return true
}

func (t *StatusTracker) End(added int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Running = false
	t.st.LastAdded = added
	if err != nil {
		t.st.LastError = err.Error()
		return
	}
	t.st.LastError = ""
	t.st.LastOkAt = time.Now().UTC().Format(time.RFC3339)
}

func (t *StatusTracker) Get() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}
