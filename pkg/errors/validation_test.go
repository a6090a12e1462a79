package errors

import (
	"testing"
)

func TestValidateImageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "beach.jpg", false},
		{"valid with spaces", "my holiday.png", false},
		{"valid unicode", "été.webp", false},
		{"valid dotfile", ".hidden.jpg", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"slash", "a/b.jpg", true},
		{"backslash", "a\\b.jpg", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateImageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidImage) {
				t.Errorf("ValidateImageName(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "3f1c2d9e-8a7b-4c6d-9e0f-1a2b3c4d5e6f", false},

		{"empty", "", true},
		{"uppercase", "3F1C2D9E-8A7B-4C6D-9E0F-1A2B3C4D5E6F", true},
		{"traversal", "../../etc/passwd", true},
		{"short", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "photo.jpg", false},
		{"valid nested", "sessions/abc/images/123", false},
		{"valid with dots", "v1.2.3/out.png", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateHexColor(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"#fff", false},
		{"#FFFFFF", false},
		{"#1e1e2e", false},

		{"", true},
		{"fff", true},
		{"#ffff", true},
		{"#gggggg", true},
		{"white", true},
	}

	for _, tt := range tests {
		err := ValidateHexColor(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHexColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidLayout,
		ErrCodeInvalidOutputSpec,
		ErrCodeInvalidImage,
		ErrCodeInvalidColor,
		ErrCodeInvalidPath,
		ErrCodeTooLarge,
		ErrCodeOverlap,
		ErrCodeNotFound,
		ErrCodeCellNotFound,
		ErrCodeImageNotFound,
		ErrCodeTemplateNotFound,
		ErrCodeSessionNotFound,
		ErrCodeImageDecode,
		ErrCodeUnsupportedFormat,
		ErrCodeStorage,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
