package domain

import (
	"testing"
	"time"
)

const testDay = "15.03.2024 "

// at parses an "HH:MM" clock time on the fixed test day.
func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	ts, err := time.Parse(TimestampLayout, testDay+hhmm+":00")
	if err != nil {
		t.Fatalf("bad test time %q: %v", hhmm, err)
	}
	return ts
}

func ptr(ts time.Time) *time.Time { return &ts }

func outage(t *testing.T, id, element, start, end string) Event {
	t.Helper()
	return Event{ID: id, NetworkElement: element, Start: at(t, start), End: at(t, end)}
}

func collect(b ChainBuilder, events []Event) []Chain {
	var chains []Chain
	for c := range b.Chains(events) {
		chains = append(chains, c)
	}
	return chains
}

func memberIDs(c Chain) []string {
	ids := make([]string, len(c.Events))
	for i, e := range c.Events {
		ids[i] = e.ID
	}
	return ids
}
