package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/service"
	"github.com/alexanderramin/procflow/internal/session"
	"github.com/alexanderramin/procflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCode = "unit-42"

// testApp wires a full App backed by the in-memory document store.
func testApp(t *testing.T) *App {
	t.Helper()
	repo := repository.NewProjectRepo(repository.NewWorkspaceStore(testutil.NewMemoryStore(t)))

	return &App{
		Workspaces: service.NewWorkspaceService(repo.Workspaces()),
		Projects:   service.NewProjectService(repo),
		Steps:      service.NewStepService(repo),
		Checklists: service.NewChecklistService(repo),
		Notes:      service.NewNoteService(repo),
		Templates:  service.NewTemplateService(repo),
		AccessCode: NewSessionFile(filepath.Join(t.TempDir(), "session")),
		NewSession: func(code string) *session.Session { return session.New(repo, code) },
		Now:        func() time.Time { return testutil.FixedNow },
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, app, args...)
	require.NoError(t, err, "procflow %s\n%s", strings.Join(args, " "), out)
	return out
}

// seedWorkspace selects testCode with a two-step template and one project.
func seedWorkspace(t *testing.T, app *App) *domain.Project {
	t.Helper()
	ctx := context.Background()
	mustRun(t, app, "workspace", "use", testCode)
	_, err := app.Templates.SetGlobal(ctx, testCode, domain.StepTemplate{
		{ID: "needs", Title: "Needs assessment", DefaultChecklist: []string{"Memo"}},
		{ID: "specs", Title: "Specifications", DefaultChecklist: []string{}},
	})
	require.NoError(t, err)
	mustRun(t, app, "project", "create", "--name", "Office chairs", "--budget", "1000")

	projects, err := app.Projects.List(ctx, testCode)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	return &projects[0]
}

func current(t *testing.T, app *App, id string) *domain.Project {
	t.Helper()
	p, err := app.Projects.Get(context.Background(), testCode, id)
	require.NoError(t, err)
	return p
}

func TestNoWorkspaceSelected(t *testing.T) {
	app := testApp(t)
	_, err := executeCmd(t, app, "project", "list")
	assert.ErrorContains(t, err, "no workspace selected")
}

func TestWorkspace_UseShowClear(t *testing.T) {
	app := testApp(t)

	out := mustRun(t, app, "workspace", "use", "  "+testCode+" ")
	assert.Contains(t, out, "Created workspace "+testCode)
	saved, err := os.ReadFile(app.AccessCode.Path)
	require.NoError(t, err)
	assert.Equal(t, testCode+"\n", string(saved))

	out = mustRun(t, app, "workspace", "use", testCode)
	assert.Contains(t, out, "Opened workspace")

	out = mustRun(t, app, "workspace", "show")
	assert.Contains(t, out, testCode)
	assert.Contains(t, out, "projects: 0")
	assert.Contains(t, out, "template: default")

	mustRun(t, app, "workspace", "clear")
	_, err = executeCmd(t, app, "workspace", "show")
	assert.ErrorContains(t, err, "no workspace selected")
}

func TestWorkspaceFlagOverridesSession(t *testing.T) {
	app := testApp(t)
	seedWorkspace(t, app)

	out := mustRun(t, app, "project", "list", "-w", "other-unit")
	assert.Contains(t, out, "No projects yet")
}

func TestProject_CreateListShowUpdateDelete(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)
	assert.Equal(t, domain.PriorityNormal, p.Priority)

	out := mustRun(t, app, "project", "list")
	assert.Contains(t, out, "Office chairs")
	assert.Contains(t, out, "1,000.00")

	out = mustRun(t, app, "project", "update", p.ID[:6],
		"--priority", "Urgent", "--contract", "800", "--deadline", "2026-05-01")
	assert.Contains(t, out, "Updated project Office chairs")
	got := current(t, app, p.ID)
	assert.Equal(t, domain.PriorityUrgent, got.Priority)
	require.NotNil(t, got.ContractAmount)
	assert.Equal(t, 800.0, *got.ContractAmount)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, "2026-05-01", got.Deadline.Format(dateLayout))
	assert.Equal(t, 1000.0, got.Budget, "unset flags keep their values")

	out = mustRun(t, app, "project", "show", "office CHAIRS")
	assert.Contains(t, out, "Needs assessment")
	assert.Contains(t, out, "savings: 200.00")

	mustRun(t, app, "project", "update", p.ID, "--contract", "-1", "--deadline", "clear")
	got = current(t, app, p.ID)
	assert.Nil(t, got.ContractAmount)
	assert.Nil(t, got.Deadline)

	_, err := executeCmd(t, app, "project", "update", p.ID, "--budget", "-5")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = executeCmd(t, app, "project", "delete", p.ID)
	assert.ErrorContains(t, err, "--yes")
	mustRun(t, app, "project", "delete", p.ID, "--yes")
	_, err = executeCmd(t, app, "project", "show", p.ID)
	assert.ErrorContains(t, err, "project not found")
}

func TestProject_CreateRequiresName(t *testing.T) {
	app := testApp(t)
	mustRun(t, app, "workspace", "use", testCode)
	_, err := executeCmd(t, app, "project", "create", "--budget", "10")
	assert.ErrorContains(t, err, "name")
}

func TestStep_CompleteAndRevert(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)

	out := mustRun(t, app, "step", "complete", p.ID, "1", "--doc", "PO-2026/014", "--date", "2026-03-28")
	assert.Contains(t, out, "Completed step 1: Needs assessment")
	assert.Contains(t, out, " 50%")

	got := current(t, app, p.ID)
	assert.True(t, got.Steps[0].Completed)
	assert.Equal(t, "PO-2026/014", *got.Steps[0].DocumentNumber)
	assert.Equal(t, "2026-03-28", got.Steps[0].CompletedAt.Format(dateLayout))
	assert.Equal(t, 1, got.CurrentStepIndex)

	mustRun(t, app, "step", "complete", p.ID, "2")
	assert.Equal(t, domain.ProjectCompleted, current(t, app, p.ID).Status)

	mustRun(t, app, "step", "revert", p.ID, "1")
	got = current(t, app, p.ID)
	assert.False(t, got.Steps[0].Completed)
	assert.Equal(t, 0, got.CurrentStepIndex)
	assert.Equal(t, domain.ProjectActive, got.Status)

	_, err := executeCmd(t, app, "step", "complete", p.ID, "0")
	assert.ErrorContains(t, err, "numbers start at 1")
	_, err = executeCmd(t, app, "step", "complete", p.ID, "9")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChecklist_Commands(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)

	mustRun(t, app, "checklist", "add", p.ID, "1", "Collect", "signatures", "--deadline", "2026-04-10")
	items := current(t, app, p.ID).Steps[0].Checklist
	require.Len(t, items, 2)
	assert.Equal(t, "Collect signatures", items[1].Text)
	assert.Equal(t, "2026-04-10", items[1].Deadline.Format(dateLayout))

	mustRun(t, app, "checklist", "edit", p.ID, "1", "2", "Collect", "two", "signatures")
	mustRun(t, app, "checklist", "check", p.ID, "1", "2")
	item := current(t, app, p.ID).Steps[0].Checklist[1]
	assert.Equal(t, "Collect two signatures", item.Text)
	assert.True(t, item.Checked)
	require.NotNil(t, item.CompletedAt)

	mustRun(t, app, "checklist", "date", p.ID, "1", "2", "2026-03-30")
	mustRun(t, app, "checklist", "uncheck", p.ID, "1", "2")
	item = current(t, app, p.ID).Steps[0].Checklist[1]
	assert.False(t, item.Checked)
	assert.Equal(t, "2026-03-30", item.CompletedAt.Format(dateLayout), "manual dates survive unchecking")

	mustRun(t, app, "checklist", "deadline", p.ID, "1", "2", "clear")
	assert.Nil(t, current(t, app, p.ID).Steps[0].Checklist[1].Deadline)

	mustRun(t, app, "checklist", "note", "add", p.ID, "1", "1", "vendor", "quoted", "120")
	notes := current(t, app, p.ID).Steps[0].Checklist[0].Notes
	require.Len(t, notes, 1)
	assert.Equal(t, "vendor quoted 120", notes[0].Text)
	mustRun(t, app, "checklist", "note", "delete", p.ID, "1", "1", notes[0].ID[:8])
	assert.Empty(t, current(t, app, p.ID).Steps[0].Checklist[0].Notes)

	mustRun(t, app, "checklist", "delete", p.ID, "1", "1")
	items = current(t, app, p.ID).Steps[0].Checklist
	require.Len(t, items, 1)
	assert.Equal(t, "Collect two signatures", items[0].Text)

	_, err := executeCmd(t, app, "checklist", "check", p.ID, "1", "7")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTimelineAndPostits(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)

	mustRun(t, app, "timeline", "add", p.ID, "2", "memo", "sent")
	mustRun(t, app, "timeline", "add", p.ID, "2", "request", "received", "--date", "2026-03-01")
	out := mustRun(t, app, "timeline", "list", p.ID, "2")
	assert.Less(t, strings.Index(out, "memo sent"), strings.Index(out, "request received"), "newest first")

	memo := current(t, app, p.ID).Steps[1].Timeline[0]
	mustRun(t, app, "timeline", "edit", p.ID, "2", memo.ID[:8], "memo", "sent", "to", "director")
	assert.Equal(t, "memo sent to director", current(t, app, p.ID).Steps[1].Timeline[0].Text)
	mustRun(t, app, "timeline", "delete", p.ID, "2", memo.ID)
	assert.Len(t, current(t, app, p.ID).Steps[1].Timeline, 1)

	mustRun(t, app, "postit", "add", p.ID, "1", "call", "finance")
	postit := current(t, app, p.ID).Steps[0].Postits[0]
	mustRun(t, app, "postit", "edit", p.ID, "1", postit.ID[:8], "call", "finance", "Monday")
	out = mustRun(t, app, "project", "show", p.ID)
	assert.Contains(t, out, "call finance Monday")
	assert.Contains(t, out, "1 timeline note(s)")

	mustRun(t, app, "postit", "delete", p.ID, "1", postit.ID[:8])
	assert.Empty(t, current(t, app, p.ID).Steps[0].Postits)

	_, err := executeCmd(t, app, "postit", "delete", p.ID, "1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTemplate_SetShowResetApply(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)
	mustRun(t, app, "checklist", "check", p.ID, "1", "1")

	file := filepath.Join(t.TempDir(), "tmpl.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
steps:
  - id: needs
    title: Needs and budget
    defaultChecklist: [Memo, Budget line]
  - id: specs
    title: Specifications
`), 0o644))

	out := mustRun(t, app, "template", "set", "--file", file)
	assert.Contains(t, out, "Updated 1 project(s)")
	got := current(t, app, p.ID)
	assert.Equal(t, "Needs and budget", got.Steps[0].Title)
	require.Len(t, got.Steps[0].Checklist, 2)
	assert.True(t, got.Steps[0].Checklist[0].Checked, "checked state survives by text")

	out = mustRun(t, app, "template", "show")
	assert.Contains(t, out, "WORKSPACE TEMPLATE")
	assert.Contains(t, out, "Budget line")

	three := filepath.Join(t.TempDir(), "three.yaml")
	require.NoError(t, os.WriteFile(three, []byte(`
- {id: needs, title: Needs}
- {id: specs, title: Specs}
- {id: award, title: Award}
`), 0o644))
	out = mustRun(t, app, "template", "set", "-f", three)
	assert.Contains(t, out, "1 project(s) have a different step count")
	assert.Len(t, current(t, app, p.ID).Steps, 2)

	mustRun(t, app, "template", "apply", p.ID)
	assert.Len(t, current(t, app, p.ID).Steps, 3)

	mustRun(t, app, "template", "reset")
	out = mustRun(t, app, "template", "show")
	assert.Contains(t, out, "DEFAULT TEMPLATE")

	_, err := executeCmd(t, app, "template", "set")
	assert.ErrorContains(t, err, "--file is required")
}

func TestSummary(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)
	mustRun(t, app, "project", "update", p.ID, "--contract", "750", "--priority", "extreme")

	out := mustRun(t, app, "summary")
	assert.Contains(t, out, "projects 1")
	assert.Contains(t, out, "savings 250.00")
	assert.Contains(t, out, "extreme 1")
}

// syncBuffer guards output written from the session goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProjectWatch_FollowsRemoteEdits(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	root := NewRootCmd(app)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"project", "watch", p.ID})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Office chairs") },
		2*time.Second, 10*time.Millisecond)

	mustRun(t, app, "step", "complete", p.ID, "1", "--doc", "PO-99")
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "#PO-99") },
		2*time.Second, 10*time.Millisecond)

	mustRun(t, app, "project", "delete", p.ID, "--yes")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after the project was deleted")
	}
	assert.Contains(t, out.String(), "Project was deleted.")
}

func TestProjectWatch_EditAppliesTypedCommands(t *testing.T) {
	app := testApp(t)
	p := seedWorkspace(t, app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdin, typed := io.Pipe()
	defer typed.Close()
	out := &syncBuffer{}
	root := NewRootCmd(app)
	root.SetIn(stdin)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"project", "watch", p.ID, "--edit"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Office chairs") },
		2*time.Second, 10*time.Millisecond)

	_, err := io.WriteString(typed, "complete 1 PO-7\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "#PO-7") },
		2*time.Second, 10*time.Millisecond)
	got := current(t, app, p.ID)
	assert.True(t, got.Steps[0].Completed)
	require.NotNil(t, got.Steps[0].DocumentNumber)
	assert.Equal(t, "PO-7", *got.Steps[0].DocumentNumber)

	_, err = io.WriteString(typed, "launch 1\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), `unknown command "launch"`) },
		2*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(typed, "quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on quit")
	}
}

func TestParseWatchEdit(t *testing.T) {
	p := testutil.NewTestProject("Desks", domain.StepTemplate{
		{ID: "s1", Title: "S1", DefaultChecklist: []string{"A"}},
		{ID: "s2", Title: "S2"},
	})

	intent, err := parseWatchEdit("check 1 1")
	require.NoError(t, err)
	require.NoError(t, intent(p, testutil.FixedNow))
	assert.True(t, p.Steps[0].Checklist[0].Checked)

	intent, err = parseWatchEdit("postit 2 call the   supplier")
	require.NoError(t, err)
	require.NoError(t, intent(p, testutil.FixedNow))
	require.Len(t, p.Steps[1].Postits, 1)
	assert.Equal(t, "call the supplier", p.Steps[1].Postits[0].Text)

	intent, err = parseWatchEdit("   ")
	require.NoError(t, err)
	assert.Nil(t, intent)

	_, err = parseWatchEdit("QUIT")
	assert.ErrorIs(t, err, errQuitWatch)
	_, err = parseWatchEdit("revert 0")
	assert.ErrorContains(t, err, "numbers start at 1")
	_, err = parseWatchEdit("check 1")
	assert.ErrorContains(t, err, "usage")
}
