package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/store"
)

// #region helpers
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	trainFlags.outputDir, trainFlags.episodes, trainFlags.dryRun = "", 0, false
	inspectFlags.runID, inspectFlags.last, inspectFlags.jsonOut = "", 20, false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func seedStore(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	run, err := st.CreateRun(store.Run{Scenario: "decentralized_safe", NumAgents: 3, ConfigJSON: `{"episodes":2}`})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	rows := []store.EpisodeRow{
		{Episode: 0, Reward: -3.5, Collisions: 2, CumulativeCollisions: 2, Steps: 10},
		{Episode: 1, Reward: -1.25, Collisions: 0, CumulativeCollisions: 2, Steps: 10, Interventions: 4},
	}
	if err := st.SaveEpisodes(run.RunID, rows); err != nil {
		t.Fatalf("SaveEpisodes: %v", err)
	}
	if err := st.SaveEval(run.RunID, []float64{-2, -4}, -3); err != nil {
		t.Fatalf("SaveEval: %v", err)
	}
	return path, run.RunID
}

// #endregion helpers

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"train": false, "inspect": false, "envserver": false, "replay": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
}

func TestTrainDryRunValidatesDefaults(t *testing.T) {
	out, err := execute(t, "train", "--dry-run", "--output", t.TempDir())
	if err != nil {
		t.Fatalf("train --dry-run: %v", err)
	}
	if !strings.Contains(out, "configuration valid") {
		t.Fatalf("expected validation message, got %q", out)
	}
}

func TestInspectListJSON(t *testing.T) {
	db, runID := seedStore(t)
	out, err := execute(t, "inspect", "--db", db, "--json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var rows []listRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if len(rows) != 1 || rows[0].RunID != runID {
		t.Fatalf("expected the seeded run, got %+v", rows)
	}
	if rows[0].Status != "complete" || rows[0].MeanReturn == nil || *rows[0].MeanReturn != -3 {
		t.Fatalf("unexpected run summary: %+v", rows[0])
	}
}

func TestInspectRunDetail(t *testing.T) {
	db, runID := seedStore(t)
	out, err := execute(t, "inspect", "--db", db, "--run", runID, "--json")
	if err != nil {
		t.Fatalf("inspect --run: %v", err)
	}
	var d detailOutput
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(d.Episodes) != 2 || d.Episodes[1].Interventions != 4 {
		t.Fatalf("unexpected episodes: %+v", d.Episodes)
	}
	if len(d.EvalReturns) != 2 || d.Run.Episodes != 2 {
		t.Fatalf("unexpected detail: %+v", d)
	}

	table, err := execute(t, "inspect", "--db", db, "--run", runID)
	if err != nil {
		t.Fatalf("inspect --run table: %v", err)
	}
	if !strings.Contains(table, "Eval mean:  -3.0000 over 2 episodes") {
		t.Fatalf("table missing eval summary:\n%s", table)
	}
}
