package i18n

import "testing"

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang string
		id   string
		want string
	}{
		{"en", "ExportColName", "Name"},
		{"en", "DateLayout", "01/02/2006"},
		{"vi", "ExportColName", "Tên"},
		{"vi", "DateLayout", "02/01/2006"},
		// Unknown languages fall back to English.
		{"fr", "ExportColScore", "Score"},
		{"en", "NoSuchMessage", "NoSuchMessage"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.id, func(t *testing.T) {
			tr, err := New(tt.lang)
			if err != nil {
				t.Fatalf("New(%q): %v", tt.lang, err)
			}
			if got := tr.T(tt.id); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestNewRejectsMalformedTag(t *testing.T) {
	if _, err := New("!!"); err == nil {
		t.Fatal("expected error for malformed language tag")
	}
}
