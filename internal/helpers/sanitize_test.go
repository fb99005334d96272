package helpers

import "testing"

func TestSanitizeResourceName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"lowercase alphanumeric", "abc123", "abc123"},
		{"uppercase is lowered", "Production", "production"},
		{"with hyphens", "rag-staging", "rag-staging"},
		{"with underscores", "rag_staging", "rag-staging"},
		{"with dots", "rag.staging", "rag-staging"},
		{"with spaces", "rag staging", "rag-staging"},
		{"mixed disallowed", "rag!stack@prod", "rag-stack-prod"},
		{"leading/trailing disallowed", ".staging.", "staging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeResourceName(tt.input); got != tt.want {
				t.Errorf("SanitizeResourceName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafeIDPrefix(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"long id", "01J8ZK3QWERTYUIOPASDFGHJKL", "01J8ZK3QWERT"},
		{"exact length id", "abcdef123456", "abcdef123456"},
		{"short id", "abcde", "abcde"},
		{"empty id", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeIDPrefix(tt.id); got != tt.want {
				t.Errorf("SafeIDPrefix() = %v, want %v", got, tt.want)
			}
		})
	}
}
