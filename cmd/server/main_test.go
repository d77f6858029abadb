package main

import (
	"testing"

	"smartfix/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: "short", TaxRatePercent: 11.5}); err == nil {
		t.Fatalf("expected short auth secret to be rejected")
	}
	if err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", TaxRatePercent: 250}); err == nil {
		t.Fatalf("expected out-of-range tax rate to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", TaxRatePercent: 11.5})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidatePINStrength(t *testing.T) {
	weak := []string{"123456", "654321", "111111", "121212", "112233", "987654"}
	for _, pin := range weak {
		if err := validatePINStrength(pin); err == nil {
			t.Fatalf("expected %q to be rejected", pin)
		}
	}
	strong := []string{"739154", "248613", "591358"}
	for _, pin := range strong {
		if err := validatePINStrength(pin); err != nil {
			t.Fatalf("expected %q to pass, got %v", pin, err)
		}
	}
}
