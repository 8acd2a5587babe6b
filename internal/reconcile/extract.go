package reconcile

import (
	"regexp"
	"strings"

	"server/internal/domain"
)

// PendingLocationPrefix marks a result-location column that still carries the
// provider's external job id instead of a real asset URL. Rows written before
// external_job_id became a first-class column use this convention.
const PendingLocationPrefix = "pending://"

var notesIDPattern = regexp.MustCompile(`(?i)(?:external[_ ]job[_ ]id|operation)\s*[:=]\s*([A-Za-z0-9][A-Za-z0-9/_.-]*)`)

// ExternalJobID resolves the provider-side identifier for a job. The
// first-class column wins; the sentinel-prefixed result location and a
// free-text notes scan are migration shims for unmigrated rows.
func ExternalJobID(job *domain.GenerationJob) (string, bool) {
	if id := strings.TrimSpace(job.ExternalJobID); id != "" {
		return id, true
	}
	if id, ok := SentinelLocation(job.ResultLocation); ok && id != "" {
		return id, true
	}
	if match := notesIDPattern.FindStringSubmatch(job.Notes); match != nil {
		return match[1], true
	}
	return "", false
}

// SentinelLocation reports whether a result-location value is the
// sentinel-prefixed placeholder, returning the embedded external id when so.
func SentinelLocation(location string) (string, bool) {
	loc := strings.TrimSpace(location)
	if !strings.HasPrefix(loc, PendingLocationPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(loc, PendingLocationPrefix)), true
}
