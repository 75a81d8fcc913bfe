package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adiazpar/starview-agent/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name        string
		phone       string
		wantE164    string
		wantDisplay string
	}{
		{"empty", "", "", ""},
		{"no digits", "ext.", "", ""},
		{"us formatted", "+1 (555) 123-4567", "+15551234567", "+1-555-123-4567"},
		{"us bare ten digits", "5551234567", "+15551234567", "+1-555-123-4567"},
		{"us eleven digits", "15551234567", "+15551234567", "+1-555-123-4567"},
		{"international", "+44 20 8858 4422", "+442088584422", "+44 20 8858 4422"},
		{"short number", "911", "+911", "911"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e164, display := domain.NormalizePhone(tt.phone)
			assert.Equal(t, tt.wantE164, e164)
			assert.Equal(t, tt.wantDisplay, display)
		})
	}
}
