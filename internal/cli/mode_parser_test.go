package cli

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode string
		wantRest []string
		wantErr  bool
	}{
		{"mode flag", []string{"--mode=booking-service"}, ModeBooking, nil, false},
		{"mode flag alias", []string{"--mode=b"}, ModeBooking, nil, false},
		{"subcommand", []string{"expiry-service"}, ModeExpiry, nil, false},
		{"subcommand alias", []string{"sweep"}, ModeExpiry, nil, false},
		{"notify shorthand", []string{"n", "--prefetch=4"}, ModeNotify, []string{"--prefetch=4"}, false},
		{"flags pass through", []string{"--mode=booking", "--max-concurrent=50"}, ModeBooking, []string{"--max-concurrent=50"}, false},
		{"no mode", []string{"--max-concurrent=50"}, "", []string{"--max-concurrent=50"}, true},
		{"unknown mode kept as-is", []string{"--mode=wat"}, "wat", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mode, rest, err := ParseMode(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got mode %q", mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode: %v", err)
			}
			if mode != tc.wantMode {
				t.Errorf("mode = %q, want %q", mode, tc.wantMode)
			}
			if len(rest) != len(tc.wantRest) {
				t.Fatalf("rest = %v, want %v", rest, tc.wantRest)
			}
			for i := range rest {
				if rest[i] != tc.wantRest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], tc.wantRest[i])
				}
			}
		})
	}
}
