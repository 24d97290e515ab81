package constants

import "testing"

func TestMapExtToFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"pdf", PDF},
		{".pdf", PDF},
		{"PDF", PDF},
		{"jpg", IMAGE},
		{"jpeg", IMAGE},
		{".PNG", IMAGE},
		{"heic", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MapExtToFormat(tt.ext); got != tt.want {
			t.Errorf("MapExtToFormat(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestMIMEForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{"png", "image/png"},
		{"pdf", "application/pdf"},
		{"bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := MIMEForExt(tt.ext); got != tt.want {
			t.Errorf("MIMEForExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestCanonicalProduct(t *testing.T) {
	tests := []struct {
		label string
		want  Product
		ok    bool
	}{
		{"Petrol", Petrol, true},
		{"PETROL", Petrol, true},
		{"  petrol  ", Petrol, true},
		{"High Speed Diesel", Diesel, true},
		{"diesel", Diesel, true},
		{"gasoline", Petrol, true},
		{"", "", false},
		{"Kerosene", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalProduct(tt.label)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalProduct(%q) = %q,%v want %q,%v", tt.label, got, ok, tt.want, tt.ok)
		}
	}
}
