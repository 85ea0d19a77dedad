package pdfapi

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple", "MyBook", "MyBook"},
		{"spaces collapse to underscores", "My Great Book", "My_Great_Book"},
		{"run of whitespace", "My   Great\t Book", "My_Great_Book"},
		{"punctuation stripped", "Hello, World!", "Hello_World"},
		{"hebrew preserved", "ספר המכלול", "ספר_המכלול"},
		{"mixed hebrew latin digits", "תלמוד Vol 2", "תלמוד_Vol_2"},
		{"hyphen and underscore kept", "a-b_c", "a-b_c"},
		{"leading and trailing whitespace", "  ספר  ", "ספר"},
		{"only punctuation", "!?!", ""},
		{"slashes removed", "a/b\\c", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_Idempotent(t *testing.T) {
	inputs := []string{
		"My Great Book",
		"Hello, World!",
		"ספר המכלול",
		"  spaced  out  ",
		"",
		"already_safe-name",
	}

	for _, in := range inputs {
		once := SanitizeFilename(in)
		twice := SanitizeFilename(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestSanitizeFilename_NoSpacesRemain(t *testing.T) {
	inputs := []string{"a b", "א ב ג", "x\ty", "a \n b"}
	for _, in := range inputs {
		got := SanitizeFilename(in)
		for _, r := range got {
			if r == ' ' || r == '\t' || r == '\n' {
				t.Errorf("SanitizeFilename(%q) = %q still contains whitespace", in, got)
			}
		}
	}
}
