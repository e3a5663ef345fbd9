package ics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "postergen/internal/log"
	"postergen/internal/poster"
)

// maxOccurrencesPerDay caps what a single runaway RRULE can add to one day.
const maxOccurrencesPerDay = 96

// Occurrence is one timed session on the programme day.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Organizer   string
	Start       time.Time
	End         time.Time
}

// OccurrencesOn expands events onto the calendar day containing day in loc.
// All-day events are skipped since they have no slot in the programme.
// RRULE, EXDATE and RECURRENCE-ID overrides are honored. The result is
// sorted by start time.
func OccurrencesOn(events []Event, day time.Time, loc *time.Location) []Occurrence {
	if loc == nil {
		loc = time.Local
	}
	d := day.In(loc)
	rangeStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	rangeEnd := rangeStart.AddDate(0, 0, 1)

	baseByUID := make(map[string][]Event)
	overridesByUID := make(map[string][]Event)
	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	out := make([]Occurrence, 0)
	for uid, bases := range baseByUID {
		for _, ev := range bases {
			out = append(out, expandEvent(ev, overridesByUID[uid], rangeStart, rangeEnd, loc)...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Summary < out[j].Summary
	})
	return out
}

func expandEvent(ev Event, overrides []Event, rangeStart, rangeEnd time.Time, loc *time.Location) []Occurrence {
	if ev.RawRRule == "" {
		start, end, src := ev.Start, ev.End, ev
		if o, ok := findOverride(overrides, start); ok {
			start, end, src = o.Start, o.End, o
		}
		if !inDay(start, rangeStart, rangeEnd) {
			return nil
		}
		return []Occurrence{makeOccurrence(src, start, end, loc)}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen by a day on both sides so overrides moved into the range are found.
	from := rangeStart.AddDate(0, 0, -1).In(ev.Start.Location())
	to := rangeEnd.AddDate(0, 0, 1).In(ev.Start.Location())
	times := set.Between(from, to, true)

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0)
	for _, occStart := range times {
		start, end, src := occStart, occStart.Add(dur), ev
		if o, ok := findOverride(overrides, occStart); ok {
			start, end, src = o.Start, o.End, o
		}
		if !inDay(start, rangeStart, rangeEnd) {
			continue
		}
		if len(out) == maxOccurrencesPerDay {
			appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", maxOccurrencesPerDay)
			break
		}
		out = append(out, makeOccurrence(src, start, end, loc))
	}
	return out
}

// findOverride finds the override whose RECURRENCE-ID equals start.
func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return Event{}, false
}

func inDay(t, rangeStart, rangeEnd time.Time) bool {
	return !t.Before(rangeStart) && t.Before(rangeEnd)
}

func makeOccurrence(ev Event, start, end time.Time, loc *time.Location) Occurrence {
	return Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Organizer:   ev.Organizer,
		Start:       start.In(loc),
		End:         end.In(loc),
	}
}

// FirstDay returns the day of the earliest timed event, in loc.
func FirstDay(events []Event, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	var first time.Time
	found := false
	for _, ev := range events {
		if ev.AllDay || ev.IsOverride {
			continue
		}
		if !found || ev.Start.Before(first) {
			first = ev.Start
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	f := first.In(loc)
	return time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc), true
}

// Entries converts occurrences into programme entries. Times are written
// like the editor's own ("9:00", "14:30"); ids are derived from the event
// UID and start so re-importing the same calendar yields the same ids.
func Entries(occs []Occurrence) []poster.ProgramEntry {
	out := make([]poster.ProgramEntry, 0, len(occs))
	for _, o := range occs {
		key := o.UID + "@" + o.Start.UTC().Format(time.RFC3339)
		out = append(out, poster.ProgramEntry{
			ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String(),
			Time:        fmt.Sprintf("%d:%02d", o.Start.Hour(), o.Start.Minute()),
			Title:       o.Summary,
			Speaker:     o.Organizer,
			Description: o.Description,
		})
	}
	return out
}
