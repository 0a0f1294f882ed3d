package trit_test

import (
	"testing"

	"github.com/helix9vm/helix9/internal/trit"
)

func TestFromIntToIntRoundTrip(t *testing.T) {
	t.Parallel()

	for i := int64(-50000); i <= 50000; i += 37 {
		w := trit.FromInt(i)
		if got := w.ToInt(); got != i {
			t.Fatalf("FromInt(%d).ToInt() = %d, want %d", i, got, i)
		}
	}
}

func TestFromIntBoundary(t *testing.T) {
	t.Parallel()

	max := trit.Max3

	tests := []int64{0, 1, -1, max, -max}
	for _, i := range tests {
		if got := trit.FromInt(i).ToInt(); got != i {
			t.Errorf("FromInt(%d).ToInt() = %d, want %d", i, got, i)
		}
	}
}

func TestMinMax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b     int8
		min, max int8
	}{
		{1, 1, 1, 1},
		{1, 0, 0, 1},
		{1, -1, -1, 1},
		{0, 0, 0, 0},
		{0, -1, -1, 0},
		{-1, -1, -1, -1},
	}

	for _, test := range tests {
		a := trit.Zero.SetTrit(0, test.a)
		b := trit.Zero.SetTrit(0, test.b)

		if got := trit.Min(a, b).Trit(0); got != test.min {
			t.Errorf("Min(%d,%d) = %d, want %d", test.a, test.b, got, test.min)
		}

		if got := trit.Max(a, b).Trit(0); got != test.max {
			t.Errorf("Max(%d,%d) = %d, want %d", test.a, test.b, got, test.max)
		}
	}
}

func TestNegate(t *testing.T) {
	t.Parallel()

	w := trit.FromInt(12345)
	if got := w.Negate().ToInt(); got != -12345 {
		t.Errorf("Negate().ToInt() = %d, want %d", got, -12345)
	}
}

func TestXorConsensusSum(t *testing.T) {
	t.Parallel()

	tests := []struct{ a, b, want int8 }{
		{1, 1, -1},
		{1, 0, 1},
		{1, -1, 0},
		{0, 0, 0},
		{0, -1, -1},
		{-1, -1, 1},
	}

	for _, test := range tests {
		a := trit.Zero.SetTrit(0, test.a)
		b := trit.Zero.SetTrit(0, test.b)

		if got := trit.Xor(a, b).Trit(0); got != test.want {
			t.Errorf("Xor(%d,%d) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestShift(t *testing.T) {
	t.Parallel()

	w := trit.Zero.SetTrit(0, 1).SetTrit(1, -1)

	left := w.ShiftLeft()
	if got := left.Trit(1); got != 1 {
		t.Errorf("ShiftLeft trit(1) = %d, want 1", got)
	}

	if got := left.Trit(0); got != 0 {
		t.Errorf("ShiftLeft trit(0) = %d, want 0", got)
	}

	right := w.ShiftRight()
	if got := right.Trit(0); got != -1 {
		t.Errorf("ShiftRight trit(0) = %d, want -1", got)
	}
}

func TestAddMixedSigns(t *testing.T) {
	t.Parallel()

	a := trit.FromInt(1000)
	b := trit.FromInt(-1)

	if got := trit.Add(a, b).ToInt(); got != 999 {
		t.Errorf("Add(1000,-1) = %d, want 999", got)
	}
}

func TestAddWrapsAtBoundary(t *testing.T) {
	t.Parallel()

	max := trit.FromInt(trit.Max3)
	one := trit.FromInt(1)

	got := trit.Add(max, one).ToInt()
	want := -trit.Max3

	if got != want {
		t.Errorf("Add(MAX,1) = %d, want %d (wraparound)", got, want)
	}
}

func TestSaturatingAdd(t *testing.T) {
	t.Parallel()

	max := trit.FromInt(trit.Max3)
	one := trit.FromInt(1)

	if got := trit.SaturatingAdd(max, one).ToInt(); got != trit.Max3 {
		t.Errorf("SaturatingAdd(MAX,1) = %d, want %d", got, trit.Max3)
	}

	min := trit.FromInt(-trit.Max3)
	negOne := trit.FromInt(-1)

	if got := trit.SaturatingAdd(min, negOne).ToInt(); got != -trit.Max3 {
		t.Errorf("SaturatingAdd(MIN,-1) = %d, want %d", got, -trit.Max3)
	}
}

func TestConsensus(t *testing.T) {
	t.Parallel()

	tests := []struct{ a, b, want int8 }{
		{1, 1, 1},
		{-1, -1, -1},
		{0, 0, 0},
		{0, 1, 1},
		{0, -1, -1},
		{1, -1, 0},
	}

	for _, test := range tests {
		a := trit.Zero.SetTrit(0, test.a)
		b := trit.Zero.SetTrit(0, test.b)

		if got := trit.Consensus(a, b).Trit(0); got != test.want {
			t.Errorf("Consensus(%d,%d) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestDecay(t *testing.T) {
	t.Parallel()

	v := trit.Zero.SetTrit(0, 1).SetTrit(1, -1)
	mask := trit.Zero.SetTrit(0, 1)

	got := trit.Decay(v, mask)

	if got.Trit(0) != 1 {
		t.Errorf("Decay trit(0) = %d, want 1", got.Trit(0))
	}

	if got.Trit(1) != 0 {
		t.Errorf("Decay trit(1) = %d, want 0", got.Trit(1))
	}
}

func TestPopCount(t *testing.T) {
	t.Parallel()

	w := trit.Zero.SetTrit(0, 1).SetTrit(1, -1).SetTrit(5, 1)

	if got := w.PopCount(); got != 3 {
		t.Errorf("PopCount() = %d, want 3", got)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	t.Parallel()

	for i := int64(-5000); i <= 5000; i += 7 {
		w := trit.FromInt(i)

		packed := w.Pack()
		got := trit.Unpack(packed)

		if got.ToInt() != w.ToInt() {
			t.Fatalf("Unpack(Pack(%d)) = %d, want %d", i, got.ToInt(), w.ToInt())
		}
	}
}

func TestSliceRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []int64{0, 1, -1, 511, -511, 255, -256}

	for _, v := range tests {
		w := trit.Zero.SetSlice(0, 10, v)
		if got := w.Slice(0, 10); got != v {
			t.Errorf("SetSlice/Slice(10, %d) = %d, want %d", v, got, v)
		}
	}
}

