package sources

import (
	"testing"

	"github.com/roleautomator/jamfroles/pkg/privileges"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name, explicit, heading string
		want                    string
	}{
		{"Read Computers", "", "", "Computers"},
		{"Read Computers", "Inventory", "Heading", "Inventory"},
		{"jamf.computer.read", "", "Computers", "Computers"},
		{"Create Computer Check-In", "", "", "Computer Check-In"},
		{"Jamf Admin Access", "", "", privileges.Uncategorized},
		{"Something", "**mobile devices**", "", "Mobile Devices"},
		{"Something", "", "Server Settings:", "Server Settings"},
		{"Readable Thing", "", "", privileges.Uncategorized},
	}
	for _, tt := range tests {
		if got := InferCategory(tt.name, tt.explicit, tt.heading); got != tt.want {
			t.Errorf("InferCategory(%q, %q, %q) = %q, want %q", tt.name, tt.explicit, tt.heading, got, tt.want)
		}
	}
}

func TestCheckHost(t *testing.T) {
	allowed := []string{"jamf.com", "127.0.0.1"}
	ok := []string{
		ClassicURL,
		JamfProURL,
		"https://learn.jamf.com/page",
		"http://127.0.0.1:8080/docs",
	}
	for _, u := range ok {
		if err := CheckHost(u, allowed); err != nil {
			t.Errorf("CheckHost(%q) unexpected error: %v", u, err)
		}
	}

	bad := []string{
		"https://jamf.com.evil.example/docs",
		"ftp://developer.jamf.com/docs",
		"https:///nohost",
		"http://10.0.0.1/docs",
	}
	for _, u := range bad {
		if err := CheckHost(u, allowed); err == nil {
			t.Errorf("CheckHost(%q) expected error", u)
		}
	}
}
