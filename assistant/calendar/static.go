package calendar

import (
	"context"
	"fmt"
	"sort"

	"github.com/retailmate/core/assistant/contract"
)

// Static serves a fixed event list from memory. Handy for local runs and
// tests when no calendar service is reachable.
type Static struct {
	events []contract.Event
}

func NewStatic(events []contract.Event) *Static {
	copied := make([]contract.Event, len(events))
	copy(copied, events)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].DaysUntil < copied[j].DaysUntil
	})
	return &Static{events: copied}
}

func (s *Static) EventsNeedingShopping(_ context.Context, daysAhead int) ([]contract.Event, error) {
	var out []contract.Event
	for _, ev := range s.events {
		if ev.DaysUntil <= daysAhead {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Static) Event(_ context.Context, id string) (*contract.Event, error) {
	for _, ev := range s.events {
		if ev.ID == id {
			found := ev
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", contract.ErrEventNotFound, id)
}
