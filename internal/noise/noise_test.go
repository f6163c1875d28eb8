package noise

import (
	"testing"
)

func newOU(t *testing.T, width int) *OU {
	t.Helper()
	o, err := NewOU(width, DefaultConfig(100))
	if err != nil {
		t.Fatalf("NewOU: %v", err)
	}
	return o
}

func TestSigmaDecaysMonotonically(t *testing.T) {
	o := newOU(t, 4)
	prev := o.Sigma(0)
	if prev != 0.3 {
		t.Fatalf("expected max sigma at episode 0, got %f", prev)
	}
	for ep := 1; ep <= 150; ep++ {
		s := o.Sigma(ep)
		if s > prev {
			t.Fatalf("sigma increased at episode %d: %f > %f", ep, s, prev)
		}
		prev = s
	}
	if o.Sigma(100) != 0 || o.Sigma(150) != 0 {
		t.Fatal("sigma should reach min sigma at the decay period and stay there")
	}
}

func TestPerturbClipsToActionRange(t *testing.T) {
	cfg := DefaultConfig(10)
	cfg.MaxSigma = 50
	o, err := NewOU(6, cfg)
	if err != nil {
		t.Fatalf("NewOU: %v", err)
	}
	in := []float64{0.9, -0.9, 0, 1, -1, 0.5}
	for step := 0; step < 20; step++ {
		out := o.Perturb(in, step, 0)
		for i, v := range out {
			if v < -1 || v > 1 {
				t.Fatalf("step %d: value %d = %f outside [-1, 1]", step, i, v)
			}
		}
	}
}

func TestPerturbLeavesInputUntouched(t *testing.T) {
	o := newOU(t, 2)
	in := []float64{0.1, 0.2}
	out := o.Perturb(in, 0, 0)
	if in[0] != 0.1 || in[1] != 0.2 {
		t.Fatalf("input mutated: %v", in)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(out))
	}
}

func TestPerturbIsSeeded(t *testing.T) {
	a, b := newOU(t, 3), newOU(t, 3)
	in := []float64{0, 0, 0}
	for step := 0; step < 5; step++ {
		oa, ob := a.Perturb(in, step, 3), b.Perturb(in, step, 3)
		for i := range oa {
			if oa[i] != ob[i] {
				t.Fatalf("step %d: seeded processes diverged at %d", step, i)
			}
		}
	}
}

func TestZeroSigmaAfterResetIsIdentity(t *testing.T) {
	o := newOU(t, 2)
	o.Reset()
	in := []float64{0.25, -0.75}
	out := o.Perturb(in, 0, 100)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("expected identity with zero sigma from reset state, got %v", out)
		}
	}
}

func TestNewOURejectsBadConfig(t *testing.T) {
	if _, err := NewOU(0, DefaultConfig(10)); err == nil {
		t.Fatal("expected error for zero width")
	}
	cfg := DefaultConfig(10)
	cfg.ActLow, cfg.ActHigh = 1, -1
	if _, err := NewOU(2, cfg); err == nil {
		t.Fatal("expected error for empty action range")
	}
	if _, err := NewOU(2, DefaultConfig(0)); err == nil {
		t.Fatal("expected error for zero decay period")
	}
}
