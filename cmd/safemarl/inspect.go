package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/store"
	"github.com/spf13/cobra"
)

var inspectFlags struct {
	dbPath  string
	runID   string
	last    int
	jsonOut bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print stored runs and their episodes",
	Long: `Read the run store written by train.

Without --run, lists the most recent runs. With --run, prints the run summary,
its per-episode metrics, update cycles and evaluation returns.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFlags.dbPath, "db", "", "path to runs.db (required)")
	inspectCmd.Flags().StringVar(&inspectFlags.runID, "run", "", "show a single run in detail")
	inspectCmd.Flags().IntVar(&inspectFlags.last, "last", 20, "show N most recent runs")
	inspectCmd.Flags().BoolVar(&inspectFlags.jsonOut, "json", false, "output as JSON instead of table")
	_ = inspectCmd.MarkFlagRequired("db")
}

func runInspect(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(inspectFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if inspectFlags.runID != "" {
		return runDetailMode(out, st, inspectFlags.runID, inspectFlags.jsonOut)
	}
	return runListMode(out, st, inspectFlags.last, inspectFlags.jsonOut)
}

// #region list-mode

type listRow struct {
	RunID      string   `json:"run_id"`
	Scenario   string   `json:"scenario"`
	Agents     int      `json:"num_agents"`
	Episodes   int      `json:"episodes"`
	Collisions int      `json:"total_collisions"`
	MeanReturn *float64 `json:"mean_eval_return,omitempty"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at"`
}

func toListRow(r store.Run) listRow {
	lr := listRow{
		RunID:      r.RunID,
		Scenario:   r.Scenario,
		Agents:     r.NumAgents,
		Episodes:   r.Episodes,
		Collisions: r.TotalCollisions,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if r.HasEval {
		m := r.MeanEvalReturn
		lr.MeanReturn = &m
	}
	return lr
}

func runListMode(out io.Writer, st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = toListRow(r)
	}
	if jsonOut {
		return printJSON(out, rows)
	}

	fmt.Fprintf(out, "%-10s  %-20s  %6s  %8s  %10s  %10s  %-9s  %s\n",
		"Run", "Scenario", "Agents", "Episodes", "Collisions", "Eval Mean", "Status", "Time")
	for _, r := range rows {
		mean := "-"
		if r.MeanReturn != nil {
			mean = fmt.Sprintf("%.3f", *r.MeanReturn)
		}
		fmt.Fprintf(out, "%-10s  %-20s  %6d  %8d  %10d  %10s  %-9s  %s\n",
			shortID(r.RunID), r.Scenario, r.Agents, r.Episodes, r.Collisions, mean, r.Status, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type episodeOut struct {
	Episode       int     `json:"episode"`
	Reward        float64 `json:"reward"`
	Collisions    int     `json:"collisions"`
	Cumulative    int     `json:"cumulative_collisions"`
	Steps         int     `json:"steps"`
	Interventions int     `json:"interventions"`
	Infeasible    bool    `json:"infeasible"`
}

type updateOut struct {
	Episode      int    `json:"episode"`
	Decision     string `json:"decision"`
	Reason       string `json:"reason,omitempty"`
	Passes       int    `json:"passes"`
	UpdateTimeMs int64  `json:"update_time_ms"`
}

type detailOutput struct {
	Run         listRow      `json:"run"`
	Config      any          `json:"config,omitempty"`
	Episodes    []episodeOut `json:"episodes"`
	Updates     []updateOut  `json:"updates"`
	EvalReturns []float64    `json:"eval_returns"`
}

func runDetailMode(out io.Writer, st *store.Store, runID string, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	episodes, err := st.GetEpisodes(runID)
	if err != nil {
		return err
	}
	updates, err := st.GetUpdates(runID)
	if err != nil {
		return err
	}
	returns, err := st.GetEvalReturns(runID)
	if err != nil {
		return err
	}

	d := detailOutput{Run: toListRow(run), EvalReturns: returns}
	if run.ConfigJSON != "" {
		var cfg any
		if err := json.Unmarshal([]byte(run.ConfigJSON), &cfg); err == nil {
			d.Config = cfg
		}
	}
	for _, e := range episodes {
		d.Episodes = append(d.Episodes, episodeOut{
			Episode:       e.Episode,
			Reward:        e.Reward,
			Collisions:    e.Collisions,
			Cumulative:    e.CumulativeCollisions,
			Steps:         e.Steps,
			Interventions: e.Interventions,
			Infeasible:    e.Infeasible,
		})
	}
	for _, u := range updates {
		d.Updates = append(d.Updates, updateOut{
			Episode:      u.Episode,
			Decision:     u.Decision,
			Reason:       u.Reason,
			Passes:       u.Passes,
			UpdateTimeMs: u.UpdateTimeMs,
		})
	}

	if jsonOut {
		return printJSON(out, d)
	}

	fmt.Fprintf(out, "Run:        %s\n", run.RunID)
	fmt.Fprintf(out, "Scenario:   %s (%d agents)\n", run.Scenario, run.NumAgents)
	fmt.Fprintf(out, "Created:    %s\n", d.Run.CreatedAt)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Episodes:   %d\n", run.Episodes)
	fmt.Fprintf(out, "Collisions: %d\n", run.TotalCollisions)
	if d.Run.MeanReturn != nil {
		fmt.Fprintf(out, "Eval mean:  %.4f over %d episodes\n", *d.Run.MeanReturn, len(returns))
	}

	fmt.Fprintf(out, "\n%7s  %10s  %10s  %10s  %6s  %13s  %s\n",
		"Episode", "Reward", "Collisions", "Cumulative", "Steps", "Interventions", "Infeasible")
	for _, e := range d.Episodes {
		fmt.Fprintf(out, "%7d  %10.4f  %10d  %10d  %6d  %13d  %v\n",
			e.Episode, e.Reward, e.Collisions, e.Cumulative, e.Steps, e.Interventions, e.Infeasible)
	}

	if len(d.Updates) > 0 {
		fmt.Fprintf(out, "\nUpdate cycles:\n")
		for _, u := range d.Updates {
			fmt.Fprintf(out, "  episode %-6d %-6s %3d passes  %6d ms  %s\n",
				u.Episode, u.Decision, u.Passes, u.UpdateTimeMs, u.Reason)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
