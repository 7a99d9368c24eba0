package ratelimit

import (
	"testing"
	"time"
)

func TestLimit_Emission(t *testing.T) {
	tests := []struct {
		limit Limit
		want  time.Duration
	}{
		{Limit{Rate: 60, Period: time.Minute}, time.Second},
		{Limit{Rate: 4, Period: time.Second}, 250 * time.Millisecond},
		{Limit{Rate: 0, Period: time.Second}, time.Second},
		{Limit{Rate: 100, Period: 50 * time.Nanosecond}, time.Nanosecond},
		{Limit{Rate: 10}, time.Nanosecond},
	}
	for _, tt := range tests {
		if got := tt.limit.Emission(); got != tt.want {
			t.Errorf("%+v.Emission() = %v, want %v", tt.limit, got, tt.want)
		}
	}
}

func TestLimit_EffectiveBurst(t *testing.T) {
	if got := (Limit{Rate: 10}).EffectiveBurst(); got != 10 {
		t.Errorf("EffectiveBurst() without burst = %d, want rate", got)
	}
	if got := (Limit{Rate: 10, Burst: 3}).EffectiveBurst(); got != 3 {
		t.Errorf("EffectiveBurst() = %d, want 3", got)
	}
	if got := (Limit{}).EffectiveBurst(); got != 1 {
		t.Errorf("EffectiveBurst() of zero limit = %d, want 1", got)
	}
}

func TestFormatKey(t *testing.T) {
	if got := FormatKey(KeyTypeIP, "10.0.0.1"); got != "ratelimit:ip:10.0.0.1" {
		t.Errorf("FormatKey(ip) = %q", got)
	}
	if got := FormatKey(KeyTypeAPIKey, "ci"); got != "ratelimit:apikey:ci" {
		t.Errorf("FormatKey(apikey) = %q", got)
	}
}
