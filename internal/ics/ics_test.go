package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"
)

const conference = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//postergen//test//EN
BEGIN:VEVENT
UID:keynote@conf
DTSTAMP:20250101T000000Z
DTSTART;TZID=Europe/Paris:20250314T090000
DTEND;TZID=Europe/Paris:20250314T100000
SUMMARY:Ouverture\, accueil
ORGANIZER;CN=Dr. Marie Curie:mailto:curie@example.org
DESCRIPTION:Mot de bienvenue
END:VEVENT
BEGIN:VEVENT
UID:talk@conf
DTSTAMP:20250101T000000Z
DTSTART:20250314T130000Z
DTEND:20250314T140000Z
SUMMARY:Session plénière
ORGANIZER:mailto:speaker@example.org
END:VEVENT
BEGIN:VEVENT
UID:coffee@conf
DTSTAMP:20250101T000000Z
DTSTART;TZID=Europe/Paris:20250313T103000
DTEND;TZID=Europe/Paris:20250313T110000
RRULE:FREQ=DAILY;COUNT=5
EXDATE;TZID=Europe/Paris:20250315T103000
SUMMARY:Pause café
END:VEVENT
BEGIN:VEVENT
UID:coffee@conf
DTSTAMP:20250101T000000Z
RECURRENCE-ID;TZID=Europe/Paris:20250314T103000
DTSTART;TZID=Europe/Paris:20250314T110000
DTEND;TZID=Europe/Paris:20250314T113000
SUMMARY:Pause café prolongée
END:VEVENT
BEGIN:VEVENT
UID:banquet@conf
DTSTAMP:20250101T000000Z
DTSTART;VALUE=DATE:20250314
SUMMARY:Journée entière
END:VEVENT
BEGIN:VEVENT
UID:next-day@conf
DTSTAMP:20250101T000000Z
DTSTART;TZID=Europe/Paris:20250315T090000
SUMMARY:Autre jour
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20250101T000000Z
DTSTART;TZID=Europe/Paris:20250314T120000
SUMMARY:No uid
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

func TestParse(t *testing.T) {
	events, err := Parse(crlf(conference))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 6 {
		t.Fatalf("events = %d, want 6 (event without UID skipped)", len(events))
	}

	byUID := map[string]Event{}
	for _, ev := range events {
		if !ev.IsOverride {
			byUID[ev.UID] = ev
		}
	}
	kn := byUID["keynote@conf"]
	if kn.Summary != "Ouverture, accueil" {
		t.Errorf("summary = %q", kn.Summary)
	}
	if kn.Organizer != "Dr. Marie Curie" {
		t.Errorf("organizer = %q", kn.Organizer)
	}
	if byUID["talk@conf"].Organizer != "speaker@example.org" {
		t.Errorf("mailto organizer = %q", byUID["talk@conf"].Organizer)
	}
	if !byUID["banquet@conf"].AllDay {
		t.Error("VALUE=DATE event not all-day")
	}
	if len(byUID["coffee@conf"].ExDates) != 1 {
		t.Errorf("exdates = %v", byUID["coffee@conf"].ExDates)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse([]byte("  \n")); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestOccurrencesOn(t *testing.T) {
	loc := paris(t)
	events, err := Parse(crlf(conference))
	if err != nil {
		t.Fatal(err)
	}

	day := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	occs := OccurrencesOn(events, day, loc)

	want := []struct {
		clock   string
		summary string
	}{
		{"09:00", "Ouverture, accueil"},
		{"11:00", "Pause café prolongée"},
		{"14:00", "Session plénière"},
	}
	if len(occs) != len(want) {
		for _, o := range occs {
			t.Logf("%s %s", o.Start.Format("15:04"), o.Summary)
		}
		t.Fatalf("occurrences = %d, want %d", len(occs), len(want))
	}
	for i, w := range want {
		if got := occs[i].Start.Format("15:04"); got != w.clock || occs[i].Summary != w.summary {
			t.Errorf("[%d] = %s %q, want %s %q", i, got, occs[i].Summary, w.clock, w.summary)
		}
	}
}

func TestOccurrencesOnHonorsExDate(t *testing.T) {
	loc := paris(t)
	events, err := Parse(crlf(conference))
	if err != nil {
		t.Fatal(err)
	}
	occs := OccurrencesOn(events, time.Date(2025, 3, 15, 12, 0, 0, 0, loc), loc)
	for _, o := range occs {
		if strings.HasPrefix(o.Summary, "Pause") {
			t.Errorf("excluded coffee break present: %+v", o)
		}
	}
	if len(occs) != 1 || occs[0].Summary != "Autre jour" {
		t.Errorf("occurrences = %+v", occs)
	}
}

func TestFirstDay(t *testing.T) {
	loc := paris(t)
	events, err := Parse(crlf(conference))
	if err != nil {
		t.Fatal(err)
	}
	d, ok := FirstDay(events, loc)
	if !ok {
		t.Fatal("no first day")
	}
	if want := time.Date(2025, 3, 13, 0, 0, 0, 0, loc); !d.Equal(want) {
		t.Errorf("FirstDay = %v, want %v", d, want)
	}
	if _, ok := FirstDay(nil, loc); ok {
		t.Error("FirstDay(nil) reported a day")
	}
}

func TestEntries(t *testing.T) {
	loc := paris(t)
	occs := []Occurrence{
		{UID: "a", Summary: "Talk", Organizer: "Ada", Description: "d", Start: time.Date(2025, 3, 14, 9, 5, 0, 0, loc)},
		{UID: "b", Summary: "Late", Start: time.Date(2025, 3, 14, 14, 30, 0, 0, loc)},
	}
	entries := Entries(occs)
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Time != "9:05" || entries[1].Time != "14:30" {
		t.Errorf("times = %q %q", entries[0].Time, entries[1].Time)
	}
	if entries[0].Title != "Talk" || entries[0].Speaker != "Ada" || entries[0].Description != "d" {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Errorf("ids = %q %q", entries[0].ID, entries[1].ID)
	}
	if again := Entries(occs); again[0].ID != entries[0].ID {
		t.Error("ids are not stable across imports")
	}
}

func TestFetcherRevalidatesAndFallsBack(t *testing.T) {
	var (
		hits    atomic.Int32
		failing atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(crlf(conference))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache || len(first.Body) == 0 {
		t.Errorf("first fetch = cache:%v bytes:%d", first.FromCache, len(first.Body))
	}

	second, err := f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != string(first.Body) {
		t.Error("304 did not reuse cached body")
	}

	failing.Store(true)
	third, err := f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	if err != nil {
		t.Fatalf("fallback fetch: %v", err)
	}
	if !third.FromCache {
		t.Error("failed fetch did not fall back to cache")
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher("")
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.ics"); err == nil {
		t.Error("404 without cache should fail")
	}
	if _, err := f.Fetch(context.Background(), "file:///etc/passwd"); err == nil {
		t.Error("file URL accepted")
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.org/private/abc.ics?token=x"); got != "https://cal.example.org/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
}
