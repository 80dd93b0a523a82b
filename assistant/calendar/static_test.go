package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/retailmate/core/assistant/contract"
)

func TestStaticFiltersAndSorts(t *testing.T) {
	t.Parallel()

	src := NewStatic([]contract.Event{
		{ID: "E2", Title: "Offsite", DaysUntil: 9},
		{ID: "E1", Title: "Birthday", DaysUntil: 2},
		{ID: "E3", Title: "Housewarming", DaysUntil: 20},
	})

	events, err := src.EventsNeedingShopping(context.Background(), 14)
	if err != nil {
		t.Fatalf("EventsNeedingShopping() error = %v", err)
	}
	if len(events) != 2 || events[0].ID != "E1" || events[1].ID != "E2" {
		t.Fatalf("events = %+v", events)
	}
}

func TestStaticEventLookup(t *testing.T) {
	t.Parallel()

	src := NewStatic([]contract.Event{{ID: "E1", Title: "Birthday", DaysUntil: 2}})

	ev, err := src.Event(context.Background(), "E1")
	if err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if ev.Title != "Birthday" {
		t.Fatalf("event = %+v", ev)
	}

	if _, err := src.Event(context.Background(), "nope"); !errors.Is(err, contract.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
