package host

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"cronhelper/internal/shared"
)

// Event is one pending occurrence of a named event.
type Event struct {
	ID        string          `json:"id"`
	Hook      string          `json:"hook"`
	Key       string          `json:"key"`
	Args      json.RawMessage `json:"args"`
	Timestamp time.Time       `json:"timestamp"`
	Schedule  string          `json:"schedule,omitempty"`
	Interval  int64           `json:"interval,omitempty"`
}

// Recurring reports whether the event repeats after firing.
func (e Event) Recurring() bool {
	return e.Schedule != ""
}

// EncodeArgs returns the JSON form of args and its argument key.
func EncodeArgs(args any) (json.RawMessage, string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, "", shared.Validationf("arguments are not JSON encodable: %v", err)
	}
	sum := sha1.Sum(raw)
	return raw, hex.EncodeToString(sum[:]), nil
}

// ArgsKey returns the argument key for args.
func ArgsKey(args any) (string, error) {
	_, key, err := EncodeArgs(args)
	return key, err
}

// NextRun returns the slot following ts for an event firing at now.
// A slot that is not in the past restarts the cycle from now; a late slot
// keeps the original phase.
func NextRun(ts, now time.Time, interval int64) time.Time {
	if interval <= 0 {
		return now
	}
	if !ts.Before(now) {
		return now.Add(time.Duration(interval) * time.Second)
	}
	late := int64(now.Sub(ts) / time.Second)
	return now.Add(time.Duration(interval-late%interval) * time.Second)
}
