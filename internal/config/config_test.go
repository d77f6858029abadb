package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaultsTaxPolicy(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("DECOMPOSE_DEPOSIT_TAX", "")

	cfg := Load()
	if cfg.TaxRatePercent != 11.5 {
		t.Fatalf("expected default IVU rate 11.5, got %v", cfg.TaxRatePercent)
	}
	if cfg.DecomposeDepositTax {
		t.Fatalf("deposit tax decomposition should default off")
	}
}

func TestLoadRejectsMalformedTaxRate(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "-3")

	cfg := Load()
	if cfg.TaxRatePercent != 11.5 {
		t.Fatalf("expected fallback rate for negative input, got %v", cfg.TaxRatePercent)
	}
}
