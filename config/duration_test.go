package config

import (
	"testing"
	"time"
)

func TestParseDurationFlexible(t *testing.T) {
	def := 3 * time.Second

	tests := []struct {
		name    string
		raw     interface{}
		want    time.Duration
		wantErr bool
	}{
		{"duration string", "500ms", 500 * time.Millisecond, false},
		{"seconds string", "5", 5 * time.Second, false},
		{"empty string", "", def, false},
		{"garbage", "soon", def, true},
		{"negative string", "-2s", def, true},
		{"int seconds", 7, 7 * time.Second, false},
		{"float seconds", 1.5, 1500 * time.Millisecond, false},
		{"duration value", 2 * time.Second, 2 * time.Second, false},
		{"nil", nil, def, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationFlexible(tt.raw, def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
