package app

import (
	"testing"

	"llhlsabr/internal/abr/domain"
)

func TestLoadConfigFallsBackToDomainDefaults(t *testing.T) {
	cfg := LoadConfig()
	def := domain.DefaultConfig()

	if cfg.Engine.ABRRule != def.ABRRule {
		t.Errorf("ABRRule = %v, want default %v", cfg.Engine.ABRRule, def.ABRRule)
	}
	if cfg.Engine.Seed != def.Seed {
		t.Errorf("Seed = %v, want default %v", cfg.Engine.Seed, def.Seed)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
}

func TestGetEnvPrefersSetValueOverFallback(t *testing.T) {
	t.Setenv("ABR_RULE", "l2a")
	cfg := LoadConfig()
	if cfg.Engine.ABRRule != domain.RuleTag("l2a") {
		t.Errorf("ABRRule = %v, want l2a", cfg.Engine.ABRRule)
	}
}

func TestGetEnvFloat64IgnoresUnparsableValue(t *testing.T) {
	t.Setenv("ABR_BANDWIDTH_FACTOR", "not-a-number")
	def := domain.DefaultConfig()
	cfg := LoadConfig()
	if cfg.Engine.AbrBandWidthFactor != def.AbrBandWidthFactor {
		t.Errorf("AbrBandWidthFactor = %v, want fallback %v", cfg.Engine.AbrBandWidthFactor, def.AbrBandWidthFactor)
	}
}

func TestGetEnvBoolParsesTrueFalse(t *testing.T) {
	t.Setenv("ABR_IS_SAFARI", "true")
	cfg := LoadConfig()
	if !cfg.Engine.IsSafari {
		t.Errorf("IsSafari = false, want true")
	}
}

func TestParseCSVTrimsAndDropsEmpty(t *testing.T) {
	got := parseCSV(" a, b ,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("parseCSV = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseCSVEmptyStringYieldsNil(t *testing.T) {
	if got := parseCSV("   "); got != nil {
		t.Errorf("parseCSV(blank) = %v, want nil", got)
	}
}
