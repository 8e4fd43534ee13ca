package worker

import (
	"context"
	"testing"
)

func TestNewRejectsEmptyCommand(t *testing.T) {
	if _, err := New(nil, "."); err == nil {
		t.Error("New accepted an empty command")
	}
}

func TestRunCapturesExitCode(t *testing.T) {
	tests := []struct {
		name     string
		command  []string
		wantCode int
	}{
		{name: "success", command: []string{"sh", "-c", "exit 0"}, wantCode: 0},
		{name: "failure", command: []string{"sh", "-c", "exit 3"}, wantCode: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := New(tt.command, t.TempDir())
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			result, err := runner.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			if result.ExitCode != tt.wantCode {
				t.Errorf("exit code = %d, want %d", result.ExitCode, tt.wantCode)
			}
			if result.PID <= 0 {
				t.Errorf("pid = %d, want > 0", result.PID)
			}
			if result.FinishedAt.Before(result.StartedAt) {
				t.Error("finished before started")
			}
		})
	}
}

func TestRunStartFailure(t *testing.T) {
	runner, err := New([]string{"/nonexistent/bot_main"}, ".")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := runner.Run(context.Background()); err == nil {
		t.Error("Run returned nil error for a nonexistent binary")
	}
}

func TestResultDuration(t *testing.T) {
	runner, err := New([]string{"sh", "-c", "sleep 0.05"}, ".")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Duration() <= 0 {
		t.Errorf("duration = %v, want > 0", result.Duration())
	}
}
