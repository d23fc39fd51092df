package maintenance

import (
	"testing"
	"time"
)

func TestValidPartitionName_Valid(t *testing.T) {
	name := "pdu_events_20250115"
	if !validPartitionName.MatchString(name) {
		t.Errorf("expected %q to match validPartitionName regex", name)
	}
}

func TestValidPartitionName_Invalid(t *testing.T) {
	invalid := []string{
		"pdu_events_abc",
		"route_events_20250115",
		"pdu_events_2025011",
		"",
	}
	for _, name := range invalid {
		if validPartitionName.MatchString(name) {
			t.Errorf("expected %q to NOT match validPartitionName regex", name)
		}
	}
}

func TestValidPartitionName_InjectionAttempt(t *testing.T) {
	name := "pdu_events_20250115; DROP TABLE x"
	if validPartitionName.MatchString(name) {
		t.Errorf("expected %q to NOT match validPartitionName regex (SQL injection attempt)", name)
	}
}

func TestPartitionName(t *testing.T) {
	day := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := PartitionName(day); got != "pdu_events_20250309" {
		t.Errorf("expected pdu_events_20250309, got %q", got)
	}
	if _, ok := partitionDate(PartitionName(day), time.UTC); !ok {
		t.Error("generated name must be accepted by partitionDate")
	}
}

func TestPartitionDate(t *testing.T) {
	d, ok := partitionDate("pdu_events_20250115", time.UTC)
	if !ok {
		t.Fatal("expected valid partition date")
	}
	if !d.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", d)
	}
	if _, ok := partitionDate("pdu_events_20251399", time.UTC); ok {
		t.Error("expected impossible date to be rejected")
	}
}

func TestRetentionCutoff(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-01-20 03:00 UTC is still 2025-01-19 in New York.
	now := time.Date(2025, 1, 20, 3, 0, 0, 0, time.UTC)
	cutoff := RetentionCutoff(now, 7, ny)
	want := time.Date(2025, 1, 12, 0, 0, 0, 0, ny)
	if !cutoff.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, cutoff)
	}

	keep, _ := partitionDate("pdu_events_20250112", ny)
	drop, _ := partitionDate("pdu_events_20250111", ny)
	if keep.Before(cutoff) {
		t.Error("partition on the cutoff day must be kept")
	}
	if !drop.Before(cutoff) {
		t.Error("partition before the cutoff day must be dropped")
	}
}
