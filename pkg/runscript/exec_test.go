package runscript

import "testing"

func TestRunSucceedsWithoutPTY(t *testing.T) {
	res, err := Run(ExecRequest{Path: "/bin/echo", Verb: "hello", NoTimeout: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("Run() ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRunReportsNonzeroExit(t *testing.T) {
	res, err := Run(ExecRequest{Path: "/bin/ls", Verb: "/no/such/path-xyz", NoTimeout: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode == 0 {
		t.Errorf("Run() ExitCode = 0, want nonzero for a missing path")
	}
}
