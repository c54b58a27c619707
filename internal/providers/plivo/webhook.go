package plivo

import (
	"errors"
	"net/http"

	"handyvoice/internal/domain"
)

// ParseForm accepts both urlencoded and multipart callbacks.
func ParseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// HangupRecord maps a hangup callback onto a call record without touching the values.
func HangupRecord(r *http.Request) domain.CallRecord {
	return domain.CallRecord{
		UUID:         r.FormValue("CallUUID"),
		StartTime:    r.FormValue("StartTime"),
		From:         r.FormValue("From"),
		To:           r.FormValue("To"),
		Direction:    r.FormValue("Direction"),
		Duration:     r.FormValue("Duration"),
		Cost:         r.FormValue("TotalCost"),
		HangupCause:  r.FormValue("HangupCauseName"),
		HangupSource: r.FormValue("HangupSource"),
	}
}
