package questiongen

import (
	"errors"
	"strings"
	"testing"
)

func TestRequest_Validate(t *testing.T) {
	long := strings.Repeat("a", 100)
	limits := DefaultLimits()

	tests := []struct {
		name    string
		req     Request
		limits  Limits
		wantErr string
	}{
		{"valid", Request{SourceText: long, Type: ShortAnswer, Count: 3}, limits, ""},
		{"text too short", Request{SourceText: long[:99], Type: ShortAnswer, Count: 3}, limits, "at least 100 characters"},
		{"text too long", Request{SourceText: strings.Repeat("a", 64001), Type: ShortAnswer, Count: 3}, limits, "at most 64000 characters"},
		{"multibyte counted as characters", Request{SourceText: strings.Repeat("é", 100), Type: TrueFalse, Count: 1}, limits, ""},
		{"zero count", Request{SourceText: long, Type: ShortAnswer, Count: 0}, limits, "count must be at least 1"},
		{"count over default max", Request{SourceText: long, Type: ShortAnswer, Count: 11}, limits, "count must be at most 10"},
		{"count within raised max", Request{SourceText: long, Type: ShortAnswer, Count: 20}, Limits{100, 64000, 20}, ""},
		{"unknown type", Request{SourceText: long, Type: "essay", Count: 1}, limits, "type must be one of"},
		{"bad limits", Request{SourceText: long, Type: ShortAnswer, Count: 1}, Limits{100, 64000, 50}, "limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.limits)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error does not wrap ErrInvalidRequest: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeSource(t *testing.T) {
	got := SanitizeSource("  <p>Construction <b>began</b> in 1882 &amp; continues.</p><script>x</script> ")
	if strings.Contains(got, "<") || !strings.HasPrefix(got, "Construction began in 1882 & continues.") {
		t.Errorf("SanitizeSource = %q", got)
	}
}

func TestSanitizeSource_EncodedTags(t *testing.T) {
	got := SanitizeSource("&lt;p&gt;The nave &lt;b&gt;opened&lt;/b&gt; in 2010.&lt;/p&gt;&lt;script&gt;steal()&lt;/script&gt;")
	if got != "The nave opened in 2010." {
		t.Errorf("SanitizeSource = %q", got)
	}
}
