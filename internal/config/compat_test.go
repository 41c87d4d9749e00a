package config

import (
	"os"
	"testing"
)

// chdirTo mirrors testing.T.Chdir (Go 1.24+): restores the working directory when the test ends.
func chdirTo(t testing.TB, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
