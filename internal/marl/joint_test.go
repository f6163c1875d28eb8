package marl

import (
	"errors"
	"testing"
)

func TestSentinelConstraint(t *testing.T) {
	c := SentinelConstraint(3, 2, 5)
	if len(c) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(c))
	}
	for i, row := range c {
		if len(row) != 2 {
			t.Fatalf("row %d: expected width 2, got %d", i, len(row))
		}
		for _, v := range row {
			if v != 5 {
				t.Fatalf("row %d: expected 5, got %f", i, v)
			}
		}
	}
	c[0][0] = -1
	if c[1][0] != 5 {
		t.Fatal("rows must not share storage")
	}
}

func TestFlattenSplitRoundTrip(t *testing.T) {
	a := Action{{1, 2}, {3, 4}, {5, 6}}
	flat := Flatten(a)
	want := []float64{1, 2, 3, 4, 5, 6}
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("flat[%d] = %f, want %f", i, flat[i], want[i])
		}
	}

	back, err := Split(flat, 3)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i := range a {
		for j := range a[i] {
			if back[i][j] != a[i][j] {
				t.Fatalf("back[%d][%d] = %f, want %f", i, j, back[i][j], a[i][j])
			}
		}
	}

	flat[0] = 99
	if back[0][0] == 99 {
		t.Fatal("split rows must not alias the flat vector")
	}
}

func TestSplitRejectsUnevenLength(t *testing.T) {
	_, err := Split([]float64{1, 2, 3}, 2)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestCopyActionIsIndependent(t *testing.T) {
	a := Action{{0.1, 0.2}, {0.3, 0.4}}
	cp, err := CopyAction(a)
	if err != nil {
		t.Fatalf("CopyAction: %v", err)
	}
	cp[0][0] = 42
	if a[0][0] != 0.1 {
		t.Fatalf("mutating the copy changed the original: %f", a[0][0])
	}
}

func TestShapedReward(t *testing.T) {
	raw := []float64{1.0, -0.5, 2.0}
	metric := []float64{0.25, 0, 1.5}
	shaped, err := ShapedReward(raw, metric)
	if err != nil {
		t.Fatalf("ShapedReward: %v", err)
	}
	for i := range raw {
		if shaped[i] != raw[i]-metric[i] {
			t.Fatalf("shaped[%d] = %f, want %f", i, shaped[i], raw[i]-metric[i])
		}
	}

	if _, err := ShapedReward(raw, metric[:2]); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestMeanRewardIsAgentCountInvariant(t *testing.T) {
	two := MeanReward([]float64{1, 1})
	four := MeanReward([]float64{1, 1, 1, 1})
	if two != four {
		t.Fatalf("mean over 2 agents %f != mean over 4 agents %f", two, four)
	}
	if MeanReward(nil) != 0 {
		t.Fatal("expected zero mean for empty reward")
	}
}

func TestCheckShape(t *testing.T) {
	p := Params{StateDim: 3, ActDim: 2, ConstraintDim: 1, NumAgents: 2}
	s := State{{0, 0, 0}, {0, 0, 0}}
	a := Action{{0, 0}, {0, 0}}
	c := Constraint{{5}, {5}}

	if err := CheckShape(p, s, a, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckShape(p, s[:1], a, c); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected mismatch on short state, got %v", err)
	}
	if err := CheckShape(p, s, Action{{0}, {0}}, c); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected mismatch on narrow action, got %v", err)
	}
	if err := CheckShape(p, nil, nil, Constraint{{5}, {5}, {5}}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected mismatch on long constraint, got %v", err)
	}
}
