package env

import "testing"

func TestGetFallsBackWhenUnset(t *testing.T) {
	t.Setenv("TICKETCART_TEST_ENV", "")
	if got := Get("TICKETCART_TEST_ENV", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("TICKETCART_TEST_ENV", " console ")
	if got := Get("TICKETCART_TEST_ENV", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestFirstOfPrefersEarlierKeys(t *testing.T) {
	t.Setenv("TICKETCART_TEST_A", "")
	t.Setenv("TICKETCART_TEST_B", "9090")
	t.Setenv("TICKETCART_TEST_C", "7070")

	if got := FirstOf("8080", "TICKETCART_TEST_A", "TICKETCART_TEST_B", "TICKETCART_TEST_C"); got != "9090" {
		t.Fatalf("expected 9090, got %q", got)
	}
	if got := FirstOf("8080", "TICKETCART_TEST_A"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
