//go:build windows

package audio

import (
	"errors"
	"os"
	"testing"
)

func TestExePathUnknownPid(t *testing.T) {
	// Windows pids are multiples of 4, so an odd pid can never be live.
	_, err := exePath(999999999)
	if err == nil {
		t.Fatal("expected an error for a nonexistent pid")
	}
	if !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
}

func TestExePathSelf(t *testing.T) {
	path, err := exePath(uint32(os.Getpid()))
	if err != nil {
		t.Fatalf("resolving own pid failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected a non-empty executable path")
	}
}
