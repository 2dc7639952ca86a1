package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		wantErr     error
		wantOutput  string
	}{
		{
			name:        "valid string within length constraints",
			input:       "  The Matrix ",
			constraints: StringConstraints{MaxLength: 20, TrimSpace: true},
			wantOutput:  "The Matrix",
		},
		{
			name:        "whitespace kept without trimming",
			input:       " Heat ",
			constraints: StringConstraints{MaxLength: 20},
			wantOutput:  " Heat ",
		},
		{
			name:        "string too long",
			input:       strings.Repeat("a", 101),
			constraints: StringConstraints{MaxLength: 100},
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "length counts characters not bytes",
			input:       strings.Repeat("é", 100),
			constraints: StringConstraints{MaxLength: 100},
			wantOutput:  strings.Repeat("é", 100),
		},
		{
			name:        "empty string not allowed",
			input:       "",
			constraints: StringConstraints{},
			wantErr:     ErrEmpty,
		},
		{
			name:        "blank string trimmed to empty",
			input:       "   ",
			constraints: StringConstraints{TrimSpace: true},
			wantErr:     ErrEmpty,
		},
		{
			name:        "empty string allowed",
			input:       "",
			constraints: StringConstraints{AllowEmpty: true},
			wantOutput:  "",
		},
		{
			name:        "tab allowed",
			input:       "Face\tOff",
			constraints: StringConstraints{},
			wantOutput:  "Face\tOff",
		},
		{
			name:        "null byte rejected",
			input:       "matrix\x00",
			constraints: StringConstraints{},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "newline rejected",
			input:       "matrix\nreloaded",
			constraints: StringConstraints{},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "trailing newline rejected before trimming",
			input:       "Heat\n",
			constraints: StringConstraints{TrimSpace: true},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "leading carriage return rejected before trimming",
			input:       "\rHeat",
			constraints: StringConstraints{TrimSpace: true},
			wantErr:     ErrInvalidCharacters,
		},
		{
			name:        "invalid UTF-8 rejected",
			input:       "caf\xe9",
			constraints: StringConstraints{},
			wantErr:     ErrInvalidEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("String() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("String() unexpected error = %v", err)
			}
			if got != tt.wantOutput {
				t.Errorf("String() = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain query", "dark city", "dark city", nil},
		{"trimmed", "  matrix  ", "matrix", nil},
		{"empty allowed", "", "", nil},
		{"SQL-looking text is just text", "select from union", "select from union", nil},
		{"at limit", strings.Repeat("a", MaxQueryLength), strings.Repeat("a", MaxQueryLength), nil},
		{"over limit", strings.Repeat("a", MaxQueryLength+1), "", ErrStringTooLong},
		{"control character", "mat\x1brix", "", ErrInvalidCharacters},
		{"trailing line feed", "matrix\n", "", ErrInvalidCharacters},
		{"trailing form feed", "matrix\f", "", ErrInvalidCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Query() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Query() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	if got, err := Title(" Face/Off "); err != nil || got != "Face/Off" {
		t.Errorf("Title() = %q, %v", got, err)
	}
	if _, err := Title("  "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty for blank title, got %v", err)
	}
	if _, err := Title(strings.Repeat("x", MaxTitleLength+1)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected ErrStringTooLong, got %v", err)
	}
}
