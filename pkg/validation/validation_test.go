package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid policy id", "policy-20260504-093015", false},
		{"valid with underscore", "doc_1", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 101), true},
		{"invalid chars", "part 0001", true},
		{"path traversal", "../etc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "policy id")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBinID(t *testing.T) {
	tests := []struct {
		name    string
		bin     string
		wantErr bool
	}{
		{"standard bin", "BIN_A", false},
		{"reject bin", "REJECT_BIN", false},
		{"digits", "BIN_7", false},
		{"empty", "", true},
		{"lower case", "bin_a", true},
		{"leading digit", "7BIN", true},
		{"dash", "BIN-A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBinID(tt.bin)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBinID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"markdown", "sorting-rules.md", false},
		{"spaces", "Line 3 SOP.pdf", false},
		{"empty", "  ", true},
		{"too long", strings.Repeat("a", 256), true},
		{"unix path", "docs/rules.md", true},
		{"windows path", `C:\docs\rules.md`, true},
		{"dot dot", "..", true},
		{"invalid utf8", "rules\xff.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	if err := ValidateQuestion("how many parts were rejected?"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateQuestion("   "); err == nil {
		t.Error("blank question should fail")
	}
	if err := ValidateQuestion(strings.Repeat("?", MaxQuestionLength+1)); err == nil {
		t.Error("oversized question should fail")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		schemes []string
		wantErr bool
	}{
		{"valid http", "http://example.com", nil, false},
		{"valid https", "https://example.com", nil, false},
		{"valid ws", "ws://localhost:8000/ws", nil, false},
		{"valid wss", "wss://example.com", nil, false},
		{"empty", "", nil, true},
		{"invalid scheme", "ftp://example.com", nil, true},
		{"no host", "http://", nil, true},
		{"invalid format", "not-a-url", nil, true},
		{"restricted ok", "wss://line.local/ws", []string{"ws", "wss"}, false},
		{"restricted rejects http", "http://line.local/ws", []string{"ws", "wss"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, tt.schemes...)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUnitInterval(t *testing.T) {
	tests := []struct {
		name    string
		v       float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"middle", 0.7, false},
		{"negative", -0.1, true},
		{"above one", 1.01, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnitInterval(tt.v, "threshold")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUnitInterval() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	if err := ValidateStringLength("héllo", 1, 5, "reason"); err != nil {
		t.Errorf("runes should be counted, got %v", err)
	}
	if err := ValidateStringLength("", 1, 5, "reason"); err == nil {
		t.Error("too short should fail")
	}
	if err := ValidateStringLength("toolong", 1, 5, "reason"); err == nil {
		t.Error("too long should fail")
	}
}
