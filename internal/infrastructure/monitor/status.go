package monitor

import "time"

// Status is the last observed state of every probed dependency.
type Status struct {
	Dependencies map[string]bool `json:"dependencies"`
	LastCheck    time.Time       `json:"last_check"`
}

// Healthy reports whether every dependency answered the last probe.
func (s Status) Healthy() bool {
	if len(s.Dependencies) == 0 {
		return false
	}
	for _, ok := range s.Dependencies {
		if !ok {
			return false
		}
	}
	return true
}
