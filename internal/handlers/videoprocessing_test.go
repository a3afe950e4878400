package handlers

import "testing"

func TestExtractGTINFindsThirteenDigitRun(t *testing.T) {
	got := extractGTIN("the code on the box is 1234567890123 for this one")
	if got != "1234567890123" {
		t.Fatalf("extractGTIN() = %q, want a 13-digit run", got)
	}
}

func TestExtractGTINIgnoresShorterRuns(t *testing.T) {
	got := extractGTIN("call me at 555 123 4567 about the product")
	if got != "" {
		t.Fatalf("extractGTIN() = %q, want empty for runs under 13 digits", got)
	}
}

func TestExtractGTINResetsAcrossNonDigits(t *testing.T) {
	got := extractGTIN("123-456-789-012-345-678-901-23")
	if got != "" {
		t.Fatalf("extractGTIN() = %q, want empty since no contiguous 13-digit run exists", got)
	}
}

func TestExtractGTINTakesFirstThirteenOfLongerRun(t *testing.T) {
	got := extractGTIN("scan 12345678901234567 please")
	if got != "1234567890123" {
		t.Fatalf("extractGTIN() = %q, want the first 13 digits of the run", got)
	}
}

func TestItemResultFailed(t *testing.T) {
	ok := ItemResult{}
	if ok.Failed() {
		t.Fatal("an empty ItemResult should not report Failed()")
	}
	bad := ItemResult{Err: "boom"}
	if !bad.Failed() {
		t.Fatal("an ItemResult with Err set should report Failed()")
	}
}
