package ratio

import "testing"

func TestSelectSource_SupportedPassThrough(t *testing.T) {
	for _, s := range SupportedRatios() {
		if got := SelectSource(MustParse(s), nil); got != s {
			t.Errorf("SelectSource(%s) = %s, want identity", s, got)
		}
	}
}

func TestSelectSource_Portrait(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"3:5", "9:16"}, // 0.6: 9:16 (0.5625) contains and is closest
		{"7:9", "3:4"},  // 0.777: 3:4 (0.75) contains and is closest
		{"4:5", "3:4"},  // 0.8: 3:4 is the nearest narrower ratio
	}

	for _, tt := range tests {
		got := SelectSource(MustParse(tt.target), nil)
		if got != tt.want {
			t.Errorf("SelectSource(%s) = %s, want %s", tt.target, got, tt.want)
			continue
		}

		// A containing portrait source is at least as narrow as the target.
		if MustParse(got).Decimal() > MustParse(tt.target).Decimal()+1e-9 {
			t.Errorf("SelectSource(%s) = %s does not contain the target", tt.target, got)
		}
	}
}

func TestSelectSource_Landscape(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"7:4", "16:9"}, // 1.75: 16:9 (1.777) contains, 4:3 does not
		{"5:4", "4:3"},  // 1.25: 4:3 (1.333) is the closest containing
		{"13:10", "4:3"},
		{"3:2", "16:9"}, // 1.5: only 16:9 contains
	}

	for _, tt := range tests {
		got := SelectSource(MustParse(tt.target), nil)
		if got != tt.want {
			t.Errorf("SelectSource(%s) = %s, want %s", tt.target, got, tt.want)
		}
	}
}

func TestSelectSource_SquareTolerance(t *testing.T) {
	if got := SelectSource(MustParse("100:101"), nil); got != "1:1" {
		t.Errorf("SelectSource(100:101) = %s, want 1:1", got)
	}
}

func TestSelectSource_ExtremeRatioFallback(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"2:7", "9:16"},   // narrower than every supported ratio
		{"9:21", "9:16"},  // story-style ultra-tall
		{"21:9", "16:9"},  // ultrawide, wider than every supported ratio
		{"100:1", "16:9"}, // pathological landscape
		{"1:100", "9:16"}, // pathological portrait
	}

	for _, tt := range tests {
		var logged bool
		logf := func(format string, args ...any) { logged = true }

		got := SelectSource(MustParse(tt.target), logf)
		if got != tt.want {
			t.Errorf("SelectSource(%s) = %s, want %s", tt.target, got, tt.want)
		}
		if !logged {
			t.Errorf("SelectSource(%s): expected fallback to be reported through the logger", tt.target)
		}
	}
}
