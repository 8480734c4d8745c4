package domain

// ScanEntry is one ticker in a day's candidate scan.
type ScanEntry struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

// DailyChanges summarizes movement between two consecutive scan days.
type DailyChanges struct {
	New       []ScanEntry `json:"new"`
	Continued []ScanEntry `json:"continued"`
	Removed   []ScanEntry `json:"removed"`
}

// DiffScans classifies today's scan entries against the previous day's.
// With no previous scan everything counts as new.
func DiffScans(previous, current []ScanEntry) DailyChanges {
	prevSet := make(TickerSet, len(previous))
	for _, e := range previous {
		prevSet[e.Ticker] = struct{}{}
	}
	curSet := make(TickerSet, len(current))
	for _, e := range current {
		curSet[e.Ticker] = struct{}{}
	}

	changes := DailyChanges{
		New:       []ScanEntry{},
		Continued: []ScanEntry{},
		Removed:   []ScanEntry{},
	}
	for _, e := range current {
		if prevSet.Has(e.Ticker) {
			changes.Continued = append(changes.Continued, e)
		} else {
			changes.New = append(changes.New, e)
		}
	}
	for _, e := range previous {
		if !curSet.Has(e.Ticker) {
			changes.Removed = append(changes.Removed, e)
		}
	}
	return changes
}
