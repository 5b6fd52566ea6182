package version

import "testing"

func TestString(t *testing.T) {
	if got, want := String("mocap-extract"), "mocap-extract dev (commit unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
