package trackid

import "testing"

func TestMax(t *testing.T) {
	if got := Max(OrderIx(3), OrderIx(7)); got != 7 {
		t.Errorf("Max(3, 7) = %d, want 7", got)
	}
	if got := Max(OrderIx(7), OrderIx(3)); got != 7 {
		t.Errorf("Max(7, 3) = %d, want 7", got)
	}
}

func TestNext(t *testing.T) {
	if got := OrderIx(5).Next(); got != 6 {
		t.Errorf("Next() = %d, want 6", got)
	}
}
