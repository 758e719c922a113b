package training

import (
	"math"
	"testing"
)

func TestAverageMeterEmpty(t *testing.T) {
	var m AverageMeter
	if m.Average() != 0 {
		t.Errorf("expected 0 average for empty meter, got %v", m.Average())
	}
}

func TestAverageMeterWeighted(t *testing.T) {
	var m AverageMeter
	m.Update(0.5, 2)
	m.Update(1.0, 6)

	// (0.5*2 + 1.0*6) / 8 = 0.875
	if math.Abs(m.Average()-0.875) > 1e-12 {
		t.Errorf("expected 0.875, got %v", m.Average())
	}
	if m.Value() != 1.0 {
		t.Errorf("expected last value 1.0, got %v", m.Value())
	}
}

func TestAverageMeterOrderIndependent(t *testing.T) {
	var a, b AverageMeter
	updates := []struct {
		value  float64
		weight int
	}{
		{0.25, 4}, {0.9, 7}, {0.1, 1}, {0.6, 3},
	}

	for _, u := range updates {
		a.Update(u.value, u.weight)
	}
	for i := len(updates) - 1; i >= 0; i-- {
		b.Update(updates[i].value, updates[i].weight)
	}

	if math.Abs(a.Average()-b.Average()) > 1e-12 {
		t.Errorf("averages differ by order: %v vs %v", a.Average(), b.Average())
	}
}

func TestAverageMeterReset(t *testing.T) {
	var m AverageMeter
	m.Update(0.7, 5)
	m.Reset()
	if m.Average() != 0 || m.Value() != 0 {
		t.Errorf("meter not cleared: avg=%v val=%v", m.Average(), m.Value())
	}
}
