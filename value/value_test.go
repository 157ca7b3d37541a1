package value

import "testing"

func TestIntFloatNeverEqualAcrossTags(t *testing.T) {
	i := NewIntFromInt64(42)
	f := NewFloat(42.0)
	if Equal(i, f) {
		t.Errorf("int(42) and float(42.0) must not compare equal across tags")
	}
}

func TestIntTruncatesTowardZero(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{3.9, 3},
		{3.0, 3},
		{-3.9, -3},
		{0.5, 0},
	}
	for _, c := range cases {
		got := NewInt(c.in)
		if got.IntVal != c.want {
			t.Errorf("NewInt(%v).IntVal = %d, want %d", c.in, got.IntVal, c.want)
		}
	}
}

func TestRecordEqualityChecksTypeName(t *testing.T) {
	a := NewRecord("User", map[string]Value{"id": NewIntFromInt64(1)}, 0, false)
	b := NewRecord("Account", map[string]Value{"id": NewIntFromInt64(1)}, 0, false)
	if Equal(a, b) {
		t.Errorf("records with different type_name must not be equal")
	}
	c := NewRecord("User", map[string]Value{"id": NewIntFromInt64(1)}, 0, false)
	if !Equal(a, c) {
		t.Errorf("records with the same type_name and fields should be equal")
	}
}

func TestBytesEqualityByLengthAndContent(t *testing.T) {
	a := NewBytes([]byte{1, 2, 3})
	b := NewBytes([]byte{1, 2, 3})
	c := NewBytes([]byte{1, 2})
	if !Equal(a, b) {
		t.Errorf("identical byte slices should compare equal")
	}
	if Equal(a, c) {
		t.Errorf("byte slices of different length should not compare equal")
	}
}

func TestResultAndOptionEquality(t *testing.T) {
	ok1 := NewOk(NewIntFromInt64(1))
	ok2 := NewOk(NewIntFromInt64(1))
	err1 := NewErrString("boom")
	if !Equal(ok1, ok2) {
		t.Errorf("Ok(1) should equal Ok(1)")
	}
	if Equal(ok1, err1) {
		t.Errorf("Ok(1) should not equal Err(...)")
	}

	none := NewNone()
	some := NewSome(NewIntFromInt64(1))
	if Equal(none, some) {
		t.Errorf("None should not equal Some(1)")
	}
}

func TestIsTruthy(t *testing.T) {
	if IsTruthy(NewBool(false)) {
		t.Error("bool(false) should be falsy")
	}
	if !IsTruthy(NewBool(true)) {
		t.Error("bool(true) should be truthy")
	}
	if IsTruthy(NewUnit()) {
		t.Error("unit should be falsy")
	}
	if IsTruthy(NewNone()) {
		t.Error("None should be falsy")
	}
	if !IsTruthy(NewSome(NewIntFromInt64(0))) {
		t.Error("Some(0) should be truthy (presence, not payload, matters)")
	}
}
