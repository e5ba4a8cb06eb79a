package flows

import (
	"testing"
	"time"
)

func TestCacheKeyLayout(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{SignInKey(ChannelEmail, "a@example.com", "t1"), "a@example.com:t1:signInRequest"},
		{SignInKey(ChannelPhone, "+12065550100", "t1"), "+12065550100:t1:phoneSignInRequest"},
		{ResetKey(ChannelEmail, "T", "t1"), "T:t1"},
		{ResetKey(ChannelPhone, "T", "t1"), "T:phone:t1"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("expected key %q, got %q", tc.want, tc.got)
		}
	}
}

func TestFormatPeriod(t *testing.T) {
	cases := map[time.Duration]string{
		2 * time.Hour:    "2 hours",
		time.Hour:        "1 hour",
		30 * time.Minute: "30 minutes",
		90 * time.Minute: "90 minutes",
		45 * time.Second: "45 seconds",
	}
	for d, want := range cases {
		if got := FormatPeriod(d); got != want {
			t.Fatalf("FormatPeriod(%v): expected %q, got %q", d, want, got)
		}
	}
}

func TestParseChannel(t *testing.T) {
	if ch, ok := ParseChannel(" phone "); !ok || ch != ChannelPhone {
		t.Fatalf("expected phone channel, got %q %v", ch, ok)
	}
	if ch, ok := ParseChannel("Email"); !ok || ch != ChannelEmail {
		t.Fatalf("expected email channel, got %q %v", ch, ok)
	}
	if _, ok := ParseChannel("fax"); ok {
		t.Fatalf("expected unknown channel to be rejected")
	}
}

func TestPhoneSignInTokenRoundTrip(t *testing.T) {
	prof, _ := profileFor(ChannelPhone)
	code, err := prof.newSignInToken()
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	shown := prof.displaySignInToken(code)
	if len(shown) != 7 || shown[3] != '-' {
		t.Fatalf("expected xxx-xxx display form, got %q", shown)
	}
	if prof.normalizeSubmitted(shown) != code {
		t.Fatalf("normalizing %q did not restore %q", shown, code)
	}
}
