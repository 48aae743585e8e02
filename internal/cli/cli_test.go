package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/gamx/internal/adapters/http/api"
	service "github.com/okian/gamx/internal/app"
	"github.com/okian/gamx/internal/cli"
	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/pkg/logger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gamx dev")
}

func TestScoreCommand(t *testing.T) {
	out, err := run(t, "score", "--gender", "M", "--mass", "55", "--total", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "827.08")
	assert.Contains(t, out, "senior M 55 kg")
}

func TestScoreCommand_JSON(t *testing.T) {
	out, err := run(t, "score", "-g", "F", "-m", "45", "-t", "130", "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result), "output should be valid JSON")
	assert.Equal(t, "senior", result["variant"])
	assert.Equal(t, 842.7, result["score"])
	assert.NotContains(t, result, "age")
}

func TestScoreCommand_Masters(t *testing.T) {
	out, err := run(t, "score", "--gender", "M", "--mass", "69", "--total", "140", "--age", "58", "--variant", "masters", "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 857.35, result["score"])
	assert.EqualValues(t, 58, result["age"])
}

func TestScoreCommand_Errors(t *testing.T) {
	t.Run("age required", func(t *testing.T) {
		_, err := run(t, "score", "--gender", "M", "--mass", "69", "--total", "140", "--variant", "masters")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--age")
	})
	t.Run("unknown gender", func(t *testing.T) {
		_, err := run(t, "score", "--gender", "X", "--mass", "69", "--total", "140")
		require.ErrorIs(t, err, scoring.ErrUnknownGender)
	})
	t.Run("unknown variant", func(t *testing.T) {
		_, err := run(t, "score", "--gender", "M", "--mass", "69", "--total", "140", "--variant", "open")
		require.ErrorIs(t, err, scoring.ErrUnknownVariant)
	})
	t.Run("invalid body mass", func(t *testing.T) {
		_, err := run(t, "score", "--gender", "M", "--mass=-1", "--total", "140")
		require.ErrorIs(t, err, scoring.ErrInvalidInput)
	})
	t.Run("missing total", func(t *testing.T) {
		_, err := run(t, "score", "--gender", "M", "--mass", "69")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "total")
	})
}

func TestScoreCommand_TablesDir(t *testing.T) {
	out, err := run(t, "--tables-dir", "../domain/scoring/tables", "score", "-g", "M", "-m", "55", "-t", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "827.08")

	_, err = run(t, "--tables-dir", t.TempDir(), "score", "-g", "M", "-m", "55", "-t", "200")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading tables")
}

func TestTargetCommand(t *testing.T) {
	out, err := run(t, "target", "--gender", "M", "--mass", "89", "--score", "1033.2419")
	require.NoError(t, err)
	assert.Contains(t, out, "needs 337 kg")
}

func TestTargetCommand_JSON(t *testing.T) {
	out, err := run(t, "target", "--gender", "M", "--mass", "81", "--score", "977.15", "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.EqualValues(t, 301, result["total"])
	assert.Equal(t, 977.15, result["beat"])
	assert.Greater(t, result["score"].(float64), 977.15)
	assert.Contains(t, result, "estimate")
	assert.Contains(t, result, "steps")
}

func TestTargetCommand_Unreachable(t *testing.T) {
	_, err := run(t, "target", "--gender", "M", "--mass", "89", "--score", "1800")
	require.ErrorIs(t, err, scoring.ErrTargetUnreachable)

	_, err = run(t, "--upper-bound", "100", "target", "--gender", "M", "--mass", "89", "--score", "1033.2419")
	require.ErrorIs(t, err, scoring.ErrTargetUnreachable)
}

func TestParamsCommand(t *testing.T) {
	out, err := run(t, "params", "--gender", "F", "--mass", "63.5", "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Greater(t, result["mu"].(float64), 0.0)
	assert.Greater(t, result["sigma"].(float64), 0.0)
	assert.Contains(t, result, "nu")

	out, err = run(t, "params", "--gender", "F", "--mass", "63.5")
	require.NoError(t, err)
	assert.Contains(t, out, "mu=")
	assert.Contains(t, out, "nu=")
}

func TestSimulateCommand(t *testing.T) {
	require.NoError(t, logger.Init(logger.WithWriter(new(bytes.Buffer))))
	ctx := context.Background()
	svc, err := service.New(service.WithWorkerCount(2))
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(ctx)
	})

	out, err := run(t, "simulate", "--url", srv.URL, "--athletes", "20", "--duplicates", "3",
		"--workers", "4", "--top", "5", "--seed", "11", "--wait", "10s", "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.EqualValues(t, 11, result["seed"])
	assert.EqualValues(t, 20, result["accepted"])
	assert.EqualValues(t, 3, result["duplicate"])
	assert.EqualValues(t, 20, result["rankings_retrieved"])
	assert.EqualValues(t, 5, result["leaderboard_entries"])
	assert.Empty(t, result["mismatches"])
}

func TestSimulateCommand_Unreachable(t *testing.T) {
	_, err := run(t, "simulate", "--url", "http://127.0.0.1:1", "--athletes", "1", "--timeout", "200ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health check")
}
