package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// NormalizeAndValidate returns a normalized copy and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.App.LogLevel = strings.ToLower(strings.TrimSpace(out.App.LogLevel))
	if out.App.LogLevel == "" {
		out.App.LogLevel = "info"
	}
	out.Storage.SlotKey = strings.TrimSpace(out.Storage.SlotKey)
	out.AI.APIKeyEnv = strings.TrimSpace(out.AI.APIKeyEnv)
	out.Assistant.SystemInstruction = strings.TrimSpace(out.Assistant.SystemInstruction)
	out.Assistant.Greeting = strings.TrimSpace(out.Assistant.Greeting)

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if !logLevels[out.App.LogLevel] {
		res.addErr("app.log_level must be one of debug, info, warn, error (got %q)", out.App.LogLevel)
	}

	if out.Storage.SlotKey == "" {
		res.addErr("storage.slot_key is required")
	} else if strings.ContainsAny(out.Storage.SlotKey, `/\`) || out.Storage.SlotKey == "." || out.Storage.SlotKey == ".." {
		res.addErr("storage.slot_key must be a plain name, not a path")
	}

	if out.AI.APIKeyEnv == "" {
		res.addWarn("ai.api_key_env is empty; the API key can only come from the keychain.")
	}
	for name, model := range map[string]string{
		"ai.discovery_model": out.AI.DiscoveryModel,
		"ai.structure_model": out.AI.StructureModel,
		"ai.audit_model":     out.AI.AuditModel,
		"ai.chat_model":      out.AI.ChatModel,
	} {
		if strings.TrimSpace(model) == "" {
			res.addErr("%s is required", name)
		}
	}
	if out.AI.AuditConcurrency < 0 {
		res.addErr("ai.audit_concurrency must be >= 0")
	} else if out.AI.AuditConcurrency > 16 {
		res.addWarn("ai.audit_concurrency is high (%d) and may hit rate limits.", out.AI.AuditConcurrency)
	}
	if out.AI.RequestsPerSecond < 0 {
		res.addErr("ai.requests_per_second must be >= 0")
	}
	if out.AI.TimeoutSeconds <= 0 {
		res.addErr("ai.timeout_seconds must be > 0")
	} else if out.AI.TimeoutSeconds < 15 {
		res.addWarn("ai.timeout_seconds is very low (%d); grounded audits often take longer.", out.AI.TimeoutSeconds)
	}

	if out.Probe.Enabled && out.Probe.TimeoutSeconds <= 0 {
		res.addErr("probe.timeout_seconds must be > 0 when probe.enabled=true")
	}

	if out.Backup.Enabled {
		if out.Backup.IntervalHours <= 0 {
			res.addErr("backup.interval_hours must be > 0 when backup.enabled=true")
		}
		if out.Backup.Keep <= 0 {
			res.addErr("backup.keep must be > 0 when backup.enabled=true")
		}
	}

	out.Scoring.GapRules = append([]Rule(nil), cfg.Scoring.GapRules...)
	for i, r := range out.Scoring.GapRules {
		out.Scoring.GapRules[i].Tag = strings.TrimSpace(r.Tag)
		if out.Scoring.GapRules[i].Tag == "" {
			res.addErr("scoring.gap_rules[%d].tag is required", i)
		}
		if len(r.Any) == 0 {
			res.addWarn("scoring.gap_rules[%d] (%s) has no needles and never matches.", i, r.Tag)
		}
	}

	return out, res
}
