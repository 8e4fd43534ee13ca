package gitsync

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeGit scripts git invocations and records them
type fakeGit struct {
	statusOutput string
	statusErr    error
	runErrs      map[string]error // joined args -> error

	calls []string
}

func (f *fakeGit) Output(ctx context.Context, dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if key == "status --porcelain" {
		return f.statusOutput, f.statusErr
	}
	return "", nil
}

func (f *fakeGit) Run(ctx context.Context, dir string, args ...string) error {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	return f.runErrs[key]
}

func newTestSyncer(fake *fakeGit) *Syncer {
	return &Syncer{
		repoDir: "/repo",
		remote:  "origin",
		branch:  "main",
		runner:  fake,
	}
}

func TestDirty(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{name: "clean tree", output: "", want: false},
		{name: "whitespace only", output: "\n", want: false},
		{name: "unstaged change", output: " M bot_main.py\n", want: true},
		{name: "staged change", output: "M  config.json\n", want: true},
		{name: "untracked file", output: "?? scratch.txt\n", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := newTestSyncer(&fakeGit{statusOutput: tt.output})

			dirty, err := syncer.Dirty(context.Background())
			if err != nil {
				t.Fatalf("Dirty: %v", err)
			}
			if dirty != tt.want {
				t.Errorf("Dirty(%q) = %v, want %v", tt.output, dirty, tt.want)
			}
		})
	}
}

func TestDirtyError(t *testing.T) {
	syncer := newTestSyncer(&fakeGit{statusErr: errors.New("not a git repository")})

	if _, err := syncer.Dirty(context.Background()); err == nil {
		t.Error("Dirty returned nil error when git status failed")
	}
}

func TestSyncRunsFetchThenReset(t *testing.T) {
	fake := &fakeGit{}
	syncer := newTestSyncer(fake)

	if err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	want := []string{"fetch origin main", "reset --hard FETCH_HEAD"}
	if len(fake.calls) != len(want) {
		t.Fatalf("git calls = %v, want %v", fake.calls, want)
	}
	for i := range want {
		if fake.calls[i] != want[i] {
			t.Fatalf("git calls = %v, want %v", fake.calls, want)
		}
	}
}

func TestSyncIgnoresFetchFailure(t *testing.T) {
	// A failed fetch is not an error: the reset proceeds against
	// whatever FETCH_HEAD already points to.
	fake := &fakeGit{runErrs: map[string]error{
		"fetch origin main": errors.New("network unreachable"),
	}}
	syncer := newTestSyncer(fake)

	if err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned %v, want nil when only the fetch fails", err)
	}

	last := fake.calls[len(fake.calls)-1]
	if last != "reset --hard FETCH_HEAD" {
		t.Errorf("reset did not run after failed fetch, calls = %v", fake.calls)
	}
}

func TestSyncReportsResetFailure(t *testing.T) {
	fake := &fakeGit{runErrs: map[string]error{
		"reset --hard FETCH_HEAD": errors.New("permission denied"),
	}}
	syncer := newTestSyncer(fake)

	if err := syncer.Sync(context.Background()); err == nil {
		t.Error("Sync returned nil when the reset failed")
	}
}

func TestSyncUsesConfiguredRemoteAndBranch(t *testing.T) {
	fake := &fakeGit{}
	syncer := &Syncer{repoDir: "/repo", remote: "upstream", branch: "develop", runner: fake}

	if err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if fake.calls[0] != "fetch upstream develop" {
		t.Errorf("fetch call = %q, want %q", fake.calls[0], "fetch upstream develop")
	}
}
