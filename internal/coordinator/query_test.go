package coordinator

import "testing"

func TestEncodeSimpleEquals(t *testing.T) {
	q := Query{Where: Eq("status", "pending")}
	values := q.Encode()

	if got := values.Get("where[status][equals]"); got != "pending" {
		t.Fatalf("where[status][equals] = %q, want %q", got, "pending")
	}
}

func TestEncodeAndTree(t *testing.T) {
	q := Query{
		Where: And(
			Eq("id", "job-1"),
			Or(
				FieldOp("claimed_by", OpExists, false),
				FieldOp("claimed_at", OpLessThanEqual, "2026-01-01T00:00:00Z"),
			),
		),
	}
	values := q.Encode()

	if got := values.Get("where[and][0][id][equals]"); got != "job-1" {
		t.Fatalf("where[and][0][id][equals] = %q", got)
	}
	if got := values.Get("where[and][1][or][0][claimed_by][exists]"); got != "false" {
		t.Fatalf("where[and][1][or][0][claimed_by][exists] = %q", got)
	}
	if got := values.Get("where[and][1][or][1][claimed_at][less_than_equal]"); got != "2026-01-01T00:00:00Z" {
		t.Fatalf("where[and][1][or][1][claimed_at][less_than_equal] = %q", got)
	}
}

func TestEncodeLimitAndSort(t *testing.T) {
	q := Query{Where: Eq("type", "crawl"), Limit: 5, Sort: "-created_at"}
	values := q.Encode()

	if got := values.Get("limit"); got != "5" {
		t.Fatalf("limit = %q, want 5", got)
	}
	if got := values.Get("sort"); got != "-created_at" {
		t.Fatalf("sort = %q, want -created_at", got)
	}
}

func TestFormatValueStringSlice(t *testing.T) {
	got := formatValue([]string{"a", "b", "c"})
	if got != "a,b,c" {
		t.Fatalf("formatValue([]string) = %q, want %q", got, "a,b,c")
	}
}
