package main

import (
	"bytes"
	"context"
	"evacuation-dashboard/internal/adapters/repositories"
	"evacuation-dashboard/internal/api"
	"evacuation-dashboard/internal/domain"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func newBackend(t *testing.T) (*httptest.Server, *repositories.MemoryPlanRepository) {
	t.Helper()
	repo := repositories.NewMemoryPlanRepository()
	_, err := repositories.SeedFromJSON(context.Background(), repo, filepath.Join("..", "..", "data", "seeds", "evacuation_plans.json"))
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(repo, api.Options{Logger: zap.NewNop()}))
	t.Cleanup(srv.Close)
	return srv, repo
}

func runCLI(t *testing.T, srv *httptest.Server, stdin string, args ...string) cliResult {
	t.Helper()
	t.Setenv("DASHBOARD_API_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("DASHBOARD_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "fatal")

	var out, errOut bytes.Buffer
	full := append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--api-url", srv.URL + "/api"}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return cliResult{code: code, stdout: out.String(), stderr: errOut.String()}
}

func TestPlansList(t *testing.T) {
	srv, _ := newBackend(t)

	res := runCLI(t, srv, "", "plans", "list")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Mumbai Coastal Evacuation Plan")
	assert.Contains(t, res.stdout, "Chennai Flood Response Plan")
	assert.Contains(t, res.stdout, "100,000")
	assert.Contains(t, res.stdout, "View all 4 shelters")
}

func TestPlansList_Filters(t *testing.T) {
	srv, _ := newBackend(t)

	res := runCLI(t, srv, "", "plans", "list", "--status", "under-review")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Chennai Flood Response Plan")
	assert.NotContains(t, res.stdout, "Mumbai Coastal Evacuation Plan")

	res = runCLI(t, srv, "", "plans", "list", "--search", "nowhere")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No evacuation plans found")

	res = runCLI(t, srv, "", "plans", "list", "--status", "paused")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown status filter "paused"`)
}

func TestPlansList_JSON(t *testing.T) {
	srv, _ := newBackend(t)

	res := runCLI(t, srv, "", "plans", "list", "--json", "--search", "GUWAHATI")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"id": "plan-3"`)
	assert.NotContains(t, res.stdout, `"id": "plan-1"`)
}

func TestPlansShow(t *testing.T) {
	srv, _ := newBackend(t)

	res := runCLI(t, srv, "", "plans", "show", "plan-2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Velachery Government School")
	assert.Contains(t, res.stdout, "GST Road Corridor")

	res = runCLI(t, srv, "", "plans", "show", "plan-2", "--shelter", "shelter-3")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Available Facilities")

	res = runCLI(t, srv, "", "plans", "show", "plan-9")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "evacuation plan not found")
}

func TestPlansCreate(t *testing.T) {
	srv, repo := newBackend(t)

	res := runCLI(t, srv, "", "plans", "create", "--name", "Pune Dam Breach", "--area", "Pune", "--capacity", "1200")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Created plan")
	assert.Contains(t, res.stdout, "Pune Dam Breach")

	plans, err := repo.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 4)
	assert.Equal(t, domain.PlanInactive, plans[3].Status)
	assert.Equal(t, 1200, plans[3].Capacity)
}

func TestPlansCreate_MissingNameIsReported(t *testing.T) {
	srv, repo := newBackend(t)

	res := runCLI(t, srv, "", "plans", "create", "--area", "Pune")

	assert.Equal(t, 1, res.code)
	assert.Equal(t, 1, strings.Count(res.stderr, "plan name is required"), "reported once: %s", res.stderr)
	plans, _ := repo.ListPlans(context.Background())
	assert.Len(t, plans, 3)
}

func TestPlansStatusCommands(t *testing.T) {
	srv, repo := newBackend(t)

	res := runCLI(t, srv, "", "plans", "activate", "plan-3")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Plan plan-3 is now active")

	res = runCLI(t, srv, "", "plans", "toggle", "plan-3")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Plan plan-3 is now inactive")

	res = runCLI(t, srv, "", "plans", "deactivate", "plan-1")
	require.Equal(t, 0, res.code, res.stderr)

	p, err := repo.GetPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanInactive, p.Status)

	res = runCLI(t, srv, "", "plans", "activate", "plan-404")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "evacuation plan not found")
}

func TestPlansDelete_Prompt(t *testing.T) {
	srv, repo := newBackend(t)

	res := runCLI(t, srv, "n\n", "plans", "delete", "plan-2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, `delete "Chennai Flood Response Plan"?`)
	assert.Contains(t, res.stdout, "Delete cancelled")
	_, err := repo.GetPlan(context.Background(), "plan-2")
	require.NoError(t, err)

	res = runCLI(t, srv, "yes\n", "plans", "delete", "plan-2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Deleted plan plan-2")
	_, err = repo.GetPlan(context.Background(), "plan-2")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestPlansDelete_Yes(t *testing.T) {
	srv, repo := newBackend(t)

	res := runCLI(t, srv, "", "plans", "delete", "--yes", "plan-1")

	require.Equal(t, 0, res.code, res.stderr)
	assert.NotContains(t, res.stdout, "Are you sure")
	plans, _ := repo.ListPlans(context.Background())
	assert.Len(t, plans, 2)
}

func TestHealth(t *testing.T) {
	srv, _ := newBackend(t)

	res := runCLI(t, srv, "", "health")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ok (Server is running)")
}

func TestBackendDown(t *testing.T) {
	srv, _ := newBackend(t)
	srv.Close()

	res := runCLI(t, srv, "", "plans", "list")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "load plans")
	assert.Contains(t, res.stderr, "network error")
}

func TestWatch(t *testing.T) {
	srv, _ := newBackend(t)
	t.Setenv("DASHBOARD_API_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("DASHBOARD_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "fatal")

	var out, errOut bytes.Buffer
	a := newApp(strings.NewReader(""), &out, &errOut)
	root := a.rootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--api-url", srv.URL + "/api", "health"})
	require.NoError(t, root.Execute())
	out.Reset()

	ctrl, err := a.newController(a.stderrNotifier())
	require.NoError(t, err)
	timeNow = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = time.Now })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.watch(ctx, ctrl, "@every 1h"))

	assert.Contains(t, out.String(), "09:30:00  plans=3 active=1 shelters=5 capacity=100,000  matching=3")
	assert.Empty(t, errOut.String())

	assert.ErrorContains(t, a.watch(context.Background(), ctrl, "every tuesday"), "invalid schedule")
}
