package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshua-d-miller/enrollpipe/internal/config"
	"github.com/joshua-d-miller/enrollpipe/internal/runlog"
	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

// fakeOps builds a registry where every stage records its invocation and
// succeeds, except the stages listed in fail (error), panics (panic), or
// hang (block until context cancellation).
type fakeOps struct {
	calls  []stage.Stage
	fail   map[stage.Stage]error
	panics map[stage.Stage]bool
	hang   map[stage.Stage]bool
}

func (f *fakeOps) registry() *stage.Registry {
	r := stage.NewRegistry()
	for _, s := range stage.Order {
		s := s
		r.Register(s, func(ctx context.Context, cfg *config.Config) error {
			f.calls = append(f.calls, s)
			if f.panics[s] {
				panic("operation blew up")
			}
			if f.hang[s] {
				<-ctx.Done()
				return ctx.Err()
			}
			return f.fail[s]
		})
	}
	return r
}

func testConfig() *config.Config {
	return &config.Config{
		Provisioning: config.Provisioning{
			HostnamePrefix: "E7",
			TimeServer:     "time.example.edu",
			Admins:         []config.Admin{{Account: "itadmin", DisplayName: "IT Admin"}},
		},
	}
}

func TestChainedAllSucceed(t *testing.T) {
	f := &fakeOps{}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeChained)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(log.Results) != len(stage.Order) {
		t.Fatalf("got %d results, want %d", len(log.Results), len(stage.Order))
	}
	for i, r := range log.Results {
		if r.Stage != stage.Order[i] {
			t.Errorf("Results[%d].Stage = %q, want %q", i, r.Stage, stage.Order[i])
		}
		if r.Outcome != stage.OutcomeSuccess {
			t.Errorf("Results[%d].Outcome = %q, want success", i, r.Outcome)
		}
	}
	if log.FinishedAt == "" {
		t.Error("run log not finished")
	}
}

func TestChainedContinuesPastFailure(t *testing.T) {
	f := &fakeOps{fail: map[stage.Stage]error{
		stage.BindDirectory: errors.New("directory service unreachable"),
	}}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), stage.HardenRemoteAccess, stage.ModeChained)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// HardenRemoteAccess through UnlockPreferencePanes inclusive: 7 stages.
	if len(log.Results) != 7 {
		t.Fatalf("got %d results, want 7", len(log.Results))
	}
	last := log.Results[len(log.Results)-1]
	if last.Stage != stage.UnlockPreferencePanes {
		t.Errorf("last stage = %q, want %q", last.Stage, stage.UnlockPreferencePanes)
	}

	var bind *stage.StageResult
	for i := range log.Results {
		if log.Results[i].Stage == stage.BindDirectory {
			bind = &log.Results[i]
		}
	}
	if bind == nil {
		t.Fatal("BindDirectory missing from run log")
	}
	if bind.Outcome != stage.OutcomeFailure {
		t.Errorf("BindDirectory outcome = %q, want failure", bind.Outcome)
	}
	if !strings.Contains(bind.Message, "directory service unreachable") {
		t.Errorf("failure reason not recorded: %q", bind.Message)
	}
}

func TestSingleRunsExactlyOneStage(t *testing.T) {
	f := &fakeOps{}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), stage.RegisterInventory, stage.ModeSingle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(log.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(log.Results))
	}
	if log.Results[0].Stage != stage.RegisterInventory {
		t.Errorf("stage = %q, want %q", log.Results[0].Stage, stage.RegisterInventory)
	}
	if len(f.calls) != 1 {
		t.Errorf("%d operations invoked, want 1 (PersonalizeAdminAccounts must not run)", len(f.calls))
	}
}

func TestSingleRecordsFailure(t *testing.T) {
	f := &fakeOps{fail: map[stage.Stage]error{
		stage.InstallManagementAgent: errors.New("installer exited 1"),
	}}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), stage.InstallManagementAgent, stage.ModeSingle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(log.Results) != 1 || log.Results[0].Outcome != stage.OutcomeFailure {
		t.Fatalf("expected one failed result, got %+v", log.Results)
	}
}

func TestPanicIsContained(t *testing.T) {
	f := &fakeOps{panics: map[stage.Stage]bool{stage.ApplyBaselineSettings: true}}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeChained)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(log.Results) != len(stage.Order) {
		t.Fatalf("panic aborted the chain: %d results, want %d", len(log.Results), len(stage.Order))
	}
	r := log.Results[2]
	if r.Stage != stage.ApplyBaselineSettings || r.Outcome != stage.OutcomeFailure {
		t.Fatalf("expected ApplyBaselineSettings failure, got %+v", r)
	}
	if !strings.Contains(r.Message, "panicked") {
		t.Errorf("panic reason not recorded: %q", r.Message)
	}
}

func TestTimeoutIsContained(t *testing.T) {
	f := &fakeOps{hang: map[stage.Stage]bool{stage.RegisterInventory: true}}
	ctrl := New(f.registry(), testConfig())
	ctrl.SetTimeout(20 * time.Millisecond)

	log, err := ctrl.Run(context.Background(), stage.RegisterInventory, stage.ModeChained)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := log.Results[0]
	if r.Outcome != stage.OutcomeFailure {
		t.Fatalf("hung stage outcome = %q, want failure", r.Outcome)
	}
	if !strings.Contains(r.Message, "timed out") {
		t.Errorf("timeout reason not recorded: %q", r.Message)
	}

	// The chain still reached the end.
	if last := log.Results[len(log.Results)-1]; last.Stage != stage.UnlockPreferencePanes {
		t.Errorf("last stage = %q, want %q", last.Stage, stage.UnlockPreferencePanes)
	}
}

func TestTimeoutWaitsForStageToReturn(t *testing.T) {
	f := &fakeOps{}
	r := f.registry()

	// The slow stage outlives its deadline but eventually returns; the next
	// stage must not start until it has.
	returned := false
	r.Register(stage.NameComputer, func(ctx context.Context, cfg *config.Config) error {
		<-ctx.Done()
		time.Sleep(30 * time.Millisecond)
		returned = true
		return ctx.Err()
	})
	r.Register(stage.HardenRemoteAccess, func(ctx context.Context, cfg *config.Config) error {
		if !returned {
			t.Error("next stage started while the timed-out operation was still running")
		}
		return nil
	})

	ctrl := New(r, testConfig())
	ctrl.SetTimeout(10 * time.Millisecond)

	log, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeChained)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !returned {
		t.Error("run finished before the timed-out operation returned")
	}
	if res := log.Results[0]; res.Outcome != stage.OutcomeFailure || !strings.Contains(res.Message, "timed out") {
		t.Errorf("slow stage result = %+v, want timeout failure", res)
	}
	if len(log.Results) != len(stage.Order) {
		t.Errorf("got %d results, want %d", len(log.Results), len(stage.Order))
	}
}

func TestUnknownStartStageIsFatal(t *testing.T) {
	f := &fakeOps{}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), "reimage-disk", stage.ModeChained)
	if !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("err = %v, want ErrUnknownStage", err)
	}
	if log != nil {
		t.Errorf("expected no run log, got %+v", log)
	}
	if len(f.calls) != 0 {
		t.Errorf("%d operations ran before the fatal error, want 0", len(f.calls))
	}
}

func TestUnregisteredStageIsFatal(t *testing.T) {
	r := stage.NewRegistry()
	invoked := false
	r.Register(stage.NameComputer, func(ctx context.Context, cfg *config.Config) error {
		invoked = true
		return nil
	})
	ctrl := New(r, testConfig())

	// Chained from the first stage reaches unregistered stages; fatal up front.
	_, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeChained)
	if !errors.Is(err, ErrUnregisteredStage) {
		t.Fatalf("err = %v, want ErrUnregisteredStage", err)
	}
	if invoked {
		t.Error("operation ran despite the fatal precondition")
	}

	// Single mode only needs the one stage; this run is fine.
	log, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeSingle)
	if err != nil {
		t.Fatalf("single run: %v", err)
	}
	if len(log.Results) != 1 {
		t.Errorf("got %d results, want 1", len(log.Results))
	}
}

func TestNilConfigIsFatal(t *testing.T) {
	f := &fakeOps{}
	ctrl := New(f.registry(), nil)

	if _, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeChained); !errors.Is(err, ErrNilConfig) {
		t.Fatalf("err = %v, want ErrNilConfig", err)
	}
}

func TestNoStageRunsTwice(t *testing.T) {
	f := &fakeOps{fail: map[stage.Stage]error{
		stage.NameComputer:          errors.New("boom"),
		stage.UnlockPreferencePanes: errors.New("boom"),
	}}
	ctrl := New(f.registry(), testConfig())

	log, err := ctrl.Run(context.Background(), stage.NameComputer, stage.ModeChained)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := make(map[stage.Stage]int)
	for _, r := range log.Results {
		seen[r.Stage]++
	}
	for s, n := range seen {
		if n != 1 {
			t.Errorf("stage %s attempted %d times, want 1", s, n)
		}
	}
	if len(log.Failures()) != 2 {
		t.Errorf("got %d failures, want 2", len(log.Failures()))
	}
}

func TestRunPersistsLog(t *testing.T) {
	f := &fakeOps{}
	ctrl := New(f.registry(), testConfig())
	store := runlog.NewStore(t.TempDir())
	ctrl.SetStore(store)

	log, err := ctrl.Run(context.Background(), stage.BindDirectory, stage.ModeSingle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	saved, err := store.Get(log.ID)
	if err != nil {
		t.Fatalf("Get saved log: %v", err)
	}
	if len(saved.Results) != 1 || saved.Results[0].Stage != stage.BindDirectory {
		t.Errorf("saved log mismatch: %+v", saved.Results)
	}
	if saved.Mode != stage.ModeSingle {
		t.Errorf("saved mode = %q, want single", saved.Mode)
	}
}

func TestSaveFailureStillReturnsLog(t *testing.T) {
	f := &fakeOps{}
	ctrl := New(f.registry(), testConfig())

	// A plain file where the store expects its base directory makes Save fail.
	base := filepath.Join(t.TempDir(), "runs")
	if err := os.WriteFile(base, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctrl.SetStore(runlog.NewStore(base))

	log, err := ctrl.Run(context.Background(), stage.BindDirectory, stage.ModeSingle)
	if err == nil {
		t.Fatal("expected a save error, got nil")
	}
	if log == nil || len(log.Results) != 1 {
		t.Fatalf("run log lost on save failure: %+v", log)
	}
}

func TestProgressOutput(t *testing.T) {
	f := &fakeOps{fail: map[stage.Stage]error{stage.BindDirectory: fmt.Errorf("no dice")}}
	ctrl := New(f.registry(), testConfig())

	var buf strings.Builder
	ctrl.SetProgress(&buf)

	if _, err := ctrl.Run(context.Background(), stage.BindDirectory, stage.ModeSingle); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "bind-directory") {
		t.Errorf("progress output missing stage name: %q", out)
	}
	if !strings.Contains(out, "FAILED") {
		t.Errorf("progress output missing failure marker: %q", out)
	}
}
