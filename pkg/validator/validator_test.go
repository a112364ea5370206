package validator

import "testing"

func TestCheckKeepsFirstMessage(t *testing.T) {
	v := New()
	v.Check(false, "otp", "must be provided")
	v.Check(false, "otp", "must be 6 digits")

	if v.Valid() {
		t.Fatalf("expected validator to be invalid")
	}
	if got := v.Errors["otp"]; got != "must be provided" {
		t.Fatalf("expected first message to win, got %q", got)
	}
}

func TestPermittedValue(t *testing.T) {
	if !PermittedValue("car", "car", "moto") {
		t.Fatalf("car should be permitted")
	}
	if PermittedValue("bus", "car", "moto") {
		t.Fatalf("bus should not be permitted")
	}
}

func TestErrorIsSorted(t *testing.T) {
	v := New()
	v.AddError("stars", "must be between 1 and 5")
	v.AddError("comment", "too long")

	want := "comment: too long; stars: must be between 1 and 5"
	if got := v.Error(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestHelpers(t *testing.T) {
	if !Matches("123456", DigitsRX) || Matches("12a456", DigitsRX) {
		t.Fatalf("digits regexp mismatch")
	}
	if !MaxChars("привет", 6) || MaxChars("привет!", 6) {
		t.Fatalf("MaxChars should count runes")
	}
	if NotBlank("   ") {
		t.Fatalf("blank string reported as not blank")
	}
}
