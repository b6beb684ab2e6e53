package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/budgetquery/internal/backend"
	"github.com/leapstack-labs/budgetquery/internal/conversation"
	"github.com/leapstack-labs/budgetquery/internal/testutil"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func answeringService(t *testing.T) *testutil.FakeService {
	t.Helper()
	svc := testutil.NewFakeService(t)
	svc.On(backend.PathInterpret, testutil.JSON(map[string]string{"status": "ok", "sql": "SELECT dept, total FROM spend"}))
	svc.On(backend.PathExecute, testutil.JSON(map[string]string{"sql": "SELECT dept, total FROM spend", "csv_data": "dept,total\nIT,10\n"}))
	svc.On(backend.PathObservations, testutil.JSON(map[string]string{"observations": "IT leads."}))
	return svc
}

func TestRoot_Help(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)

	for _, want := range []string{"chat", "serve", "init", "version", "completion", "--server", "--request-timeout"} {
		assert.Contains(t, out, want)
	}
}

func TestRoot_Version(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "budgetquery v"+Version)
}

func TestRoot_ChatUsesServerFlag(t *testing.T) {
	svc := answeringService(t)

	out, err := run(t, "", "--server", svc.URL, "--no-color", "chat", "total", "spend")
	require.NoError(t, err)

	assert.Contains(t, out, conversation.AckText)
	assert.Contains(t, out, "IT leads.")
	assert.Contains(t, out, conversation.FollowUpText)
	assert.Len(t, svc.Requests(backend.PathInterpret), 1)
	testutil.AssertNoANSI(t, out)
}

func TestRoot_ChatUsesEnvironment(t *testing.T) {
	svc := answeringService(t)
	t.Setenv("BUDGETQUERY_SERVER", svc.URL)

	out, err := run(t, "total spend\n.sql\n", "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "> total spend")
	assert.Contains(t, out, "SELECT dept, total FROM spend")
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := run(t, "", "--server", "ftp://example.org", "chat", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestRoot_ServiceErrorIsShown(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.On(backend.PathInterpret, testutil.Error(400, "Query too long"))

	out, err := run(t, "", "--server", svc.URL, "chat", "x")
	require.NoError(t, err, "service errors are part of the conversation")
	assert.Contains(t, out, "Error: Query too long")
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "budgetquery")

	_, err = run(t, "", "completion", "tcsh")
	assert.Error(t, err)
}
