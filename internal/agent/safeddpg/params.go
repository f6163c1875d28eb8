package safeddpg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// #region save
// SaveParams writes each agent's actor weights, actor bias and critic
// coefficients as .npy arrays under dir.
func (a *Agent) SaveParams(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create params dir: %w", err)
	}
	for i := range a.actors {
		arrays := map[string]*mat.Dense{
			fmt.Sprintf("actor_%d.npy", i):      a.actors[i].w,
			fmt.Sprintf("actor_bias_%d.npy", i): column(a.actors[i].b),
			fmt.Sprintf("critic_%d.npy", i):     column(a.critics[i].theta),
		}
		for name, m := range arrays {
			if err := writeNpy(filepath.Join(dir, name), m); err != nil {
				return fmt.Errorf("save agent %d: %w", i, err)
			}
		}
	}
	return nil
}

// LoadParams restores parameters written by SaveParams. Target copies are
// reset to the loaded values.
func (a *Agent) LoadParams(dir string) error {
	for i := range a.actors {
		w, err := readNpy(filepath.Join(dir, fmt.Sprintf("actor_%d.npy", i)))
		if err != nil {
			return fmt.Errorf("load agent %d: %w", i, err)
		}
		b, err := readNpy(filepath.Join(dir, fmt.Sprintf("actor_bias_%d.npy", i)))
		if err != nil {
			return fmt.Errorf("load agent %d: %w", i, err)
		}
		theta, err := readNpy(filepath.Join(dir, fmt.Sprintf("critic_%d.npy", i)))
		if err != nil {
			return fmt.Errorf("load agent %d: %w", i, err)
		}

		if r, c := w.Dims(); r != a.params.ActDim || c != a.params.StateDim {
			return fmt.Errorf("actor %d is %dx%d, want %dx%d", i, r, c, a.params.ActDim, a.params.StateDim)
		}
		if r, _ := b.Dims(); r != a.params.ActDim {
			return fmt.Errorf("actor bias %d has %d rows, want %d", i, r, a.params.ActDim)
		}
		if r, _ := theta.Dims(); r != a.featureDim() {
			return fmt.Errorf("critic %d has %d rows, want %d", i, r, a.featureDim())
		}

		a.actors[i] = actor{w: w, b: mat.VecDenseCopyOf(b.ColView(0))}
		a.critics[i] = critic{theta: mat.VecDenseCopyOf(theta.ColView(0))}
		a.targetActors[i] = a.actors[i].clone()
		a.targetCritics[i] = a.critics[i].clone()
	}
	return nil
}

// #endregion save

// #region npy
func column(v *mat.VecDense) *mat.Dense {
	return mat.NewDense(v.Len(), 1, mat.VecDenseCopyOf(v).RawVector().Data)
}

func writeNpy(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, m); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readNpy(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}

// #endregion npy
