package sqlite

import (
	"fmt"
	"time"
)

const keyLastTrigger = "cooldown.last_trigger_time"

// LoadLastTrigger returns the persisted cooldown timestamp.
// ok is false when no trigger has been recorded. A value that does not
// parse is reported as an error so the caller can fail open.
func (d *DB) LoadLastTrigger() (time.Time, bool, error) {
	v, err := d.GetState(keyLastTrigger)
	if err != nil {
		return time.Time{}, false, err
	}
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt %s %q: %w", keyLastTrigger, v, err)
	}
	return t, true, nil
}

// SaveLastTrigger persists t, or clears the stored value when t is nil.
func (d *DB) SaveLastTrigger(t *time.Time) error {
	if t == nil {
		return d.DeleteState(keyLastTrigger)
	}
	return d.SetState(keyLastTrigger, t.Format(time.RFC3339Nano))
}
