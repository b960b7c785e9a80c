package obslog

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	lg := New("not-a-level")
	if lg.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level fallback, got %v", lg.GetLevel())
	}
}

func TestNewHonorsDebugLevel(t *testing.T) {
	lg := New("debug")
	if lg.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", lg.GetLevel())
	}
}

func TestWithComponentTagsEntry(t *testing.T) {
	lg := Discard()
	entry := WithComponent(lg, "gossip")
	if entry.Data["component"] != "gossip" {
		t.Fatalf("expected component field, got %v", entry.Data)
	}
}
