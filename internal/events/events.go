package events

import (
	"encoding/json"
	"time"
)

// Event types pushed to dashboard subscribers.
const (
	LeadsScouted   = "leads_scouted"
	LeadUpserted   = "lead_upserted"
	LeadUpdated    = "lead_updated"
	LeadSaved      = "lead_save_toggled"
	LeadsImported  = "leads_imported"
	BackupWritten  = "backup_written"
	ConfigReloaded = "config_reloaded"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// LeadChange is the payload of the per-lead events.
type LeadChange struct {
	ID      string `json:"id"`
	IsSaved *bool  `json:"isSaved,omitempty"`
	Source  string `json:"source,omitempty"` // "ui" or "assistant"
}
