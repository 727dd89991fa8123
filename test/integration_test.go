package test

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// btBinary is the path to the compiled bt binary, set by TestMain.
var btBinary string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	tmpDir, err := os.MkdirTemp("", "bt-integration-build-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}

	btBinary = filepath.Join(tmpDir, "bt")
	cmd := exec.Command("go", "build", "-o", btBinary, "./cmd/bt")
	// Test working dir is test/, so go up one level to project root
	cmd.Dir = filepath.Join("..")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build bt binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// --- Fixtures ---

// fixtureLog: two Salary rounds ending in a TA, a same-day Workload exchange,
// one Health Benefits proposal and one row with an unparsable date.
const fixtureLog = `Article,Topic,Date,Party,Changes from Previous Version
Salary,Pay,2024-01-01,Union,Proposed $45k minimum
Salary,Pay,2024-02-01,University,Countered $38k
Workload,Hours,2024-02-01,Union,Cap at 20 hours
Workload,Hours,2024-02-01,University,Cap at 25 hours
Salary,Pay,not a date,Union,Lost row
Salary,Pay,2024-03-01,Tentative Agreement,TA at $41k
Health Benefits,Health,2024-03-15,Union,Full dependent coverage
`

// fixtureUnknown adds an article that belongs to no group.
const fixtureUnknown = `Article,Date,Party,Changes from Previous Version
Salary,2024-01-01,Union,Proposed $45k minimum
Parking,2024-01-05,Union,Free parking
`

// --- Helpers ---

type env struct {
	home   string
	xdg    string
	events string
}

func newEnv(t *testing.T, log string) env {
	t.Helper()
	home := t.TempDir()
	e := env{
		home:   home,
		xdg:    filepath.Join(home, ".config"),
		events: writeFixture(t, filepath.Join(home, "data"), "negotiations.csv", log),
	}
	mustRunBT(t, e, "init", e.events)
	return e
}

func (e env) vars() []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + e.home,
		"XDG_CONFIG_HOME=" + e.xdg,
		"LOG_LEVEL=error",
	}
}

func runBT(t *testing.T, e env, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(btBinary, args...)
	cmd.Env = e.vars()
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func mustRunBT(t *testing.T, e env, args ...string) string {
	t.Helper()
	stdout, stderr, err := runBT(t, e, args...)
	if err != nil {
		t.Fatalf("bt %s failed: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout, stderr)
	}
	return stdout
}

func writeFixture(t *testing.T, dir, filename, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", msg, s, substr)
	}
}

func assertNotContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to NOT contain %q", msg, s, substr)
	}
}

// --- Tests ---

func TestInitWritesConfig(t *testing.T) {
	e := newEnv(t, fixtureLog)
	cfgPath := filepath.Join(e.xdg, "bargain-timeline", "config.toml")
	if !fileExists(cfgPath) {
		t.Fatalf("expected config at %s", cfgPath)
	}
	data, _ := os.ReadFile(cfgPath)
	assertContains(t, string(data), `events = "~/data/negotiations.csv"`, "config")

	// Second init leaves the file alone.
	os.WriteFile(cfgPath, append(data, []byte("# edited\n")...), 0o644)
	mustRunBT(t, e, "init", "/elsewhere.csv")
	again, _ := os.ReadFile(cfgPath)
	assertContains(t, string(again), "# edited", "config after re-init")
}

func TestTimeline(t *testing.T) {
	e := newEnv(t, fixtureLog)
	stdout, stderr, err := runBT(t, e, "timeline")
	if err != nil {
		t.Fatalf("timeline failed: %v\n%s", err, stderr)
	}

	assertContains(t, stdout, "Salary (3 changes)", "timeline")
	assertContains(t, stdout, "2024-01-01  2024-02-01  Union", "union proposal ends at the counter")
	assertContains(t, stdout, "2024-03-01  Present     Tentative Agreement", "TA is open")
	// Same-day changes by both parties do not end each other.
	assertContains(t, stdout, "2024-02-01  Present     Union", "workload union")
	assertContains(t, stdout, "2024-02-01  Present     University", "workload university")
	assertContains(t, stderr, "warning: skipped line 6", "malformed row warning")
}

func TestTimelineFilters(t *testing.T) {
	e := newEnv(t, fixtureLog)

	benefits := mustRunBT(t, e, "timeline", "--group", "Benefits")
	assertContains(t, benefits, "Health Benefits", "benefits group")
	assertNotContains(t, benefits, "Salary", "benefits group")

	early := mustRunBT(t, e, "timeline", "--to", "2024-01-31")
	assertContains(t, early, "Proposed $45k minimum", "range")
	assertNotContains(t, early, "Health Benefits", "range")

	md := mustRunBT(t, e, "timeline", "--markdown", "--article", "Salary")
	assertContains(t, md, "| Group | Article | Party |", "markdown header")
	assertContains(t, md, "| Compensation | Salary | Tentative Agreement | 2024-03-01 | Present |", "markdown row")

	_, stderr, err := runBT(t, e, "timeline", "--group", "Parking")
	if err == nil {
		t.Fatal("expected unknown group to fail")
	}
	assertContains(t, stderr, "Parking", "unknown group error")
}

func TestChangesAndRecent(t *testing.T) {
	e := newEnv(t, fixtureLog)

	changes := mustRunBT(t, e, "changes", "Workload", "2/1/2024")
	assertContains(t, changes, "Cap at 20 hours", "changes")
	assertContains(t, changes, "Cap at 25 hours", "changes")

	none := mustRunBT(t, e, "changes", "Workload", "2024-05-01")
	assertContains(t, none, "No changes recorded.", "no changes")

	recent := mustRunBT(t, e, "recent", "Salary")
	assertContains(t, recent, "TA at $41k", "recent")
	assertContains(t, recent, "Topic\n  Pay", "recent topic")

	_, stderr, err := runBT(t, e, "recent", "Parking")
	if err == nil {
		t.Fatal("expected unknown article to fail")
	}
	assertContains(t, stderr, `article "Parking" has no group`, "recent unknown")
}

func TestGroups(t *testing.T) {
	e := newEnv(t, fixtureLog)
	out := mustRunBT(t, e, "groups")
	assertContains(t, out, "Compensation (3 changes)", "groups")
	assertContains(t, out, "Workload & Appointments (2 changes)", "groups")
	assertContains(t, out, "6 changes across 3 articles", "groups footer")
}

func TestImportAndStoreSource(t *testing.T) {
	e := newEnv(t, fixtureLog)

	out := mustRunBT(t, e, "import")
	assertContains(t, out, "imported 6 events (1 malformed)", "import")
	assertContains(t, out, "snapshot: ~/.local/share/bargain-timeline/archive/negotiations-", "import snapshot")
	if !fileExists(filepath.Join(e.home, ".local", "share", "bargain-timeline", "events.db")) {
		t.Error("expected event store to be created")
	}

	list := mustRunBT(t, e, "archive", "list")
	assertContains(t, list, ".csv.zst", "archive list")

	// Switch to the store and remove the CSV: the timeline must still build.
	cfgPath := filepath.Join(e.xdg, "bargain-timeline", "config.toml")
	data, _ := os.ReadFile(cfgPath)
	updated := strings.Replace(string(data), `source = "csv"`, `source = "store"`, 1)
	os.WriteFile(cfgPath, []byte(updated), 0o644)
	os.Remove(e.events)

	stdout, stderr, err := runBT(t, e, "timeline", "--article", "Salary")
	if err != nil {
		t.Fatalf("timeline from store failed: %v\n%s", err, stderr)
	}
	assertContains(t, stdout, "Salary (3 changes)", "timeline from store")
	assertNotContains(t, stderr, "warning", "store rows are already clean")
}

func TestArchiveSnapshotIsReadable(t *testing.T) {
	e := newEnv(t, fixtureLog)
	out := mustRunBT(t, e, "archive", "snapshot")
	assertContains(t, out, "snapshot: ", "archive snapshot")

	// Point the config at the snapshot itself.
	snap := strings.Fields(strings.TrimPrefix(out, "snapshot: "))[0]
	snap = strings.Replace(snap, "~", e.home, 1)
	cfgPath := filepath.Join(e.xdg, "bargain-timeline", "config.toml")
	data, _ := os.ReadFile(cfgPath)
	updated := strings.Replace(string(data), `events = "~/data/negotiations.csv"`, fmt.Sprintf("events = %q", snap), 1)
	os.WriteFile(cfgPath, []byte(updated), 0o644)

	groups := mustRunBT(t, e, "groups")
	assertContains(t, groups, "6 changes across 3 articles", "groups from snapshot")
}

func TestCheck(t *testing.T) {
	e := newEnv(t, fixtureLog)
	stdout, _, err := runBT(t, e, "check")
	if err != nil {
		t.Fatalf("check should pass with warnings only: %v\n%s", err, stdout)
	}
	assertContains(t, stdout, "warn  parse", "check parse")
	assertContains(t, stdout, "pass  groups", "check groups")
}

func TestUnknownArticleFails(t *testing.T) {
	e := newEnv(t, fixtureUnknown)

	_, stderr, err := runBT(t, e, "timeline")
	if err == nil {
		t.Fatal("expected timeline to fail on unclassified article")
	}
	assertContains(t, stderr, `article "Parking" has no group`, "timeline")

	stdout, _, err := runBT(t, e, "check")
	if err == nil {
		t.Fatal("expected check to fail")
	}
	assertContains(t, stdout, `FAIL  groups`, "check")
}

func TestHelpAndVersion(t *testing.T) {
	e := env{home: t.TempDir()}
	e.xdg = filepath.Join(e.home, ".config")

	version := mustRunBT(t, e, "version")
	assertContains(t, version, "bt v", "version")

	_, stderr, _ := runBT(t, e, "help")
	assertContains(t, stderr, "bt timeline [--group G] [...]", "usage")

	out := mustRunBT(t, e, "timeline", "--help")
	assertContains(t, out, "bt timeline — print the derived negotiation intervals", "timeline --help")

	out = mustRunBT(t, e, "archive", "list", "--help")
	assertContains(t, out, "bt archive list —", "archive list --help")

	_, _, err := runBT(t, e, "bogus")
	if err == nil {
		t.Error("expected unknown command to fail")
	}
}
