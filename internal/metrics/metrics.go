package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/rollout"
	"github.com/sbinet/npyio"
	"github.com/xuri/excelize/v2"
)

// ErrPersisted is returned by a second Persist call.
var ErrPersisted = errors.New("metrics already persisted")

// Artifact names written under the output directory.
const (
	RewardsFile     = "rewards.npy"
	CollisionsFile  = "collisions.npy"
	InfeasibleFile  = "infeasible.npy"
	WorkbookFile    = "metrics.xlsx"
	EvalReturnsFile = "eval_returns.npy"
)

// #region aggregator
// Aggregator accumulates run metrics episode by episode. It is owned by the
// trainer and written out once at the end of training.
type Aggregator struct {
	episodes   []rollout.EpisodeResult
	rewards    []float64
	collisions []float64 // cumulative
	infeasible []bool
	total      int
	persisted  bool
}

// Record appends one completed episode.
func (a *Aggregator) Record(res rollout.EpisodeResult) {
	a.total += res.Collisions
	a.episodes = append(a.episodes, res)
	a.rewards = append(a.rewards, res.Reward)
	a.collisions = append(a.collisions, float64(a.total))
	a.infeasible = append(a.infeasible, res.Infeasible)
}

// Rewards returns the per-episode reward totals.
func (a *Aggregator) Rewards() []float64 { return append([]float64(nil), a.rewards...) }

// Collisions returns the cumulative collision count after each episode.
func (a *Aggregator) Collisions() []float64 { return append([]float64(nil), a.collisions...) }

// Infeasible returns the per-episode infeasibility flags.
func (a *Aggregator) Infeasible() []bool { return append([]bool(nil), a.infeasible...) }

// Interventions returns the per-episode intervention counts.
func (a *Aggregator) Interventions() []int {
	out := make([]int, len(a.episodes))
	for i, ep := range a.episodes {
		out[i] = ep.Interventions
	}
	return out
}

// Episodes returns every recorded episode in order.
func (a *Aggregator) Episodes() []rollout.EpisodeResult {
	return append([]rollout.EpisodeResult(nil), a.episodes...)
}

// TotalCollisions is the running collision count.
func (a *Aggregator) TotalCollisions() int { return a.total }

// Len is the number of recorded episodes.
func (a *Aggregator) Len() int { return len(a.episodes) }

// #endregion aggregator

// #region persist
// Persist writes the three run arrays and the metrics workbook under dir.
// It succeeds at most once per Aggregator.
func (a *Aggregator) Persist(dir string) error {
	if a.persisted {
		return ErrPersisted
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeNpy(filepath.Join(dir, RewardsFile), a.rewards); err != nil {
		return err
	}
	if err := writeNpy(filepath.Join(dir, CollisionsFile), a.collisions); err != nil {
		return err
	}
	if err := writeNpy(filepath.Join(dir, InfeasibleFile), a.infeasible); err != nil {
		return err
	}
	if err := a.writeWorkbook(filepath.Join(dir, WorkbookFile)); err != nil {
		return err
	}
	a.persisted = true
	return nil
}

// WriteEvalReturns writes the evaluation returns array under dir.
func WriteEvalReturns(dir string, returns []float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return writeNpy(filepath.Join(dir, EvalReturnsFile), returns)
}

func writeNpy(path string, val any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := npyio.Write(f, val); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// #endregion persist

// #region workbook
const episodeSheet = "Episodes"

func (a *Aggregator) writeWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(episodeSheet); err != nil {
		return fmt.Errorf("workbook sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("workbook sheet: %w", err)
	}

	header := []any{"episode", "reward", "collisions", "cumulative_collisions", "steps", "interventions", "infeasible"}
	if err := f.SetSheetRow(episodeSheet, "A1", &header); err != nil {
		return fmt.Errorf("workbook header: %w", err)
	}
	for i, ep := range a.episodes {
		row := []any{ep.Episode, ep.Reward, ep.Collisions, int(a.collisions[i]), ep.Steps, ep.Interventions, ep.Infeasible}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(episodeSheet, cell, &row); err != nil {
			return fmt.Errorf("workbook row %d: %w", i, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// #endregion workbook
