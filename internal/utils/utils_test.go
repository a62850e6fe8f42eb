package utils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		"\u00a0 Read\u00a0Computers ": "Read Computers",
		"Create\n\t  Buildings":       "Create Buildings",
		"":                            "",
		"jamf.computer.read":          "jamf.computer.read",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("WARN"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", Log.GetLevel())
	}
	if err := SetLogLevel("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLogLevel("info")
}

func TestDirLockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := NewDirLock(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}
