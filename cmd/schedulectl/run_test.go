package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `
mode: strict_all
therapists:
  - id: R1
sessions:
  - id: T1
    date: "2024-01-01"
    start_time: "09:00"
    end_time: "10:00"
  - id: T2
    date: "2024-01-01"
    start_time: "09:30"
    end_time: "10:30"
  - id: T3
    date: "2024-01-01"
    start_time: "10:30"
    end_time: "11:00"
`

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(args []string, stdin string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Help(t *testing.T) {
	code, out, _ := run([]string{"--help"}, "")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "solve")
	assert.Contains(t, out, "conflicts")
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, _ := run([]string{"--unknown-flag"}, "")
	assert.Equal(t, 1, code)
}

func TestSolve_StrictInfeasible(t *testing.T) {
	path := writeSnapshot(t, snapshotYAML)

	code, out, _ := run([]string{"solve", "--file", path}, "")
	require.Equal(t, 0, code)

	var resp struct {
		Feasible    bool              `json:"feasible"`
		Assignments []json.RawMessage `json:"assignments"`
		Infeasible  struct {
			Unplaced []string `json:"unplaced"`
		} `json:"infeasible"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Feasible)
	assert.Empty(t, resp.Assignments)
	assert.Equal(t, []string{"T1", "T2", "T3"}, resp.Infeasible.Unplaced)

	code, _, errOut := run([]string{"solve", "--file", path, "--fail-infeasible"}, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "3 session(s) unplaced")
}

func TestSolve_BestEffortFromStdin(t *testing.T) {
	code, out, _ := run([]string{"solve", "-f", "-", "--mode", "best_effort", "--workers", "4"}, snapshotYAML)
	require.Equal(t, 0, code)

	var resp struct {
		Mode        string `json:"mode"`
		Assignments []struct {
			SessionID   string `json:"session_id"`
			TherapistID string `json:"therapist_id"`
		} `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "best_effort", resp.Mode)
	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, "T1", resp.Assignments[0].SessionID)
	assert.Equal(t, "T3", resp.Assignments[1].SessionID)
}

func TestConflicts(t *testing.T) {
	code, out, _ := run([]string{"conflicts", "--file", writeSnapshot(t, snapshotYAML)}, "")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"count":1,"conflicts":[{"a":"T1","b":"T2"}]}`, out)
}

func TestSolve_BadInput(t *testing.T) {
	code, _, errOut := run([]string{"solve", "--file", filepath.Join(t.TempDir(), "missing.yaml")}, "")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)

	code, _, errOut = run([]string{"solve", "-f", "-"}, "sessions: [{id: A, date: '2024-01-01', start_time: '11:00', end_time: '10:00'}]")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "malformed interval")

	code, _, _ = run([]string{"solve"}, "")
	assert.Equal(t, 1, code)
}
