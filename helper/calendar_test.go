package helper

import (
	"booking_manager/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", h(0), h(2), h(0), h(2), true},
		{"partial overlap", h(0), h(2), h(1), h(3), true},
		{"contained", h(0), h(4), h(1), h(2), true},
		{"back to back", h(0), h(2), h(2), h(4), false},
		{"disjoint", h(0), h(1), h(3), h(4), false},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsResourceAvailableNoConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(6 * time.Hour)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := IsResourceAvailable(db, 3, start, end, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected resource to be available")
	}
}

func TestIsResourceAvailableConflict(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(6 * time.Hour)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := IsResourceAvailable(db, 3, start, end, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected resource to be unavailable")
	}
}

func TestAvailableForUpdateLocksResourceRow(t *testing.T) {
	// A free window has no slot rows to lock, so the resource row must be
	// locked before the conflict count or two writers could both see zero.
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(6 * time.Hour)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT \* FROM "resources" WHERE "resources"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Lane 3"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := AvailableForUpdate(db, 3, start, end, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected window to be free")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAvailableForUpdateExcludingIgnoresOwnSlots(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(6 * time.Hour)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT \* FROM "resources" WHERE "resources"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Lane 3"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reserved_slots".*order_id <> `).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := AvailableForUpdateExcluding(db, 7, 3, start, end, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected window to be free for the rebooking order")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithinBusinessHours(t *testing.T) {
	weekday := model.BusinessHour{OpenMinute: 10 * 60, CloseMinute: 23 * 60}
	day := func(hh, mm int) time.Time {
		return time.Date(2026, 3, 10, hh, mm, 0, 0, time.UTC)
	}

	if !WithinBusinessHours(weekday, day(10, 0), day(12, 0)) {
		t.Fatal("opening slot should fit")
	}
	if !WithinBusinessHours(weekday, day(21, 0), day(23, 0)) {
		t.Fatal("slot ending exactly at close should fit")
	}
	if WithinBusinessHours(weekday, day(9, 0), day(11, 0)) {
		t.Fatal("slot starting before open should not fit")
	}
	if WithinBusinessHours(weekday, day(22, 0), day(23, 30)) {
		t.Fatal("slot running past close should not fit")
	}

	// Friday closes at midnight; the end is measured from the start day's
	// midnight, so 22:00 + 2h lands exactly on the close.
	friday := model.BusinessHour{OpenMinute: 10 * 60, CloseMinute: 24 * 60}
	if !WithinBusinessHours(friday, day(22, 0), day(22, 0).Add(2*time.Hour)) {
		t.Fatal("slot ending at midnight should fit a 24:00 close")
	}
	if WithinBusinessHours(friday, day(23, 0), day(23, 0).Add(2*time.Hour)) {
		t.Fatal("slot crossing past midnight should not fit")
	}

	closed := model.BusinessHour{Closed: true, OpenMinute: 10 * 60, CloseMinute: 23 * 60}
	if WithinBusinessHours(closed, day(12, 0), day(14, 0)) {
		t.Fatal("closed day should reject every slot")
	}
}
