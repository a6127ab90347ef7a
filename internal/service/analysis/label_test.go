package analysis

import "testing"

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, LabelPositive},
		{-0.5, LabelNegative},
		{0.1, LabelNeutral},
		{0.3, LabelNeutral},
		{-0.3, LabelNeutral},
		{0.31, LabelPositive},
		{-1, LabelNegative},
		{1, LabelPositive},
		{0, LabelNeutral},
	}

	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestEmoji(t *testing.T) {
	if Emoji(0.9) == Emoji(-0.9) || Emoji(0.9) == Emoji(0) {
		t.Error("expected distinct emoji per label")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindEmptyInput, "empty_input"},
		{KindTimeoutExhausted, "timeout_exhausted"},
		{KindServerResponse, "server_response"},
		{KindConnectivity, "connectivity"},
		{KindCanceled, "canceled"},
		{Kind(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}
