package status

import "testing"

func TestClass(t *testing.T) {
	cases := map[Code]string{
		Success:             "00",
		Omitted:             "00",
		NoData:              "02",
		DataException:       "22",
		InvalidTransaction:  "25",
		ActiveTransaction:   "25",
		TransactionRollback: "40",
		InvalidSyntax:       "42",
	}
	for code, want := range cases {
		if got := Class(code); got != want {
			t.Errorf("Class(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestExactlyOneClassifier(t *testing.T) {
	codes := []Code{Success, Omitted, NoData, DataException, InvalidTransaction, ActiveTransaction, TransactionRollback, InvalidSyntax}
	for _, c := range codes {
		n := 0
		for _, f := range []func(Code) bool{IsSuccess, IsWarning, IsNoData, IsInformational, IsException} {
			if f(c) {
				n++
			}
		}
		if n != 1 {
			t.Errorf("code %q matched %d classifiers, want exactly 1", c, n)
		}
	}
}

func TestIsException(t *testing.T) {
	if !IsException(ActiveTransaction) {
		t.Error("25G01 should be an exception (alphabetic tail, class 25)")
	}
	if !IsException(InvalidSyntax) {
		t.Error("42001 should be an exception (class 42 >= 08)")
	}
	if IsException(Success) {
		t.Error("00000 should not be an exception")
	}
	if IsException(NoData) {
		t.Error("02000 should not be an exception")
	}
}

func TestGqlStatusString(t *testing.T) {
	s := New(InvalidSyntax, "unexpected token")
	if got, want := s.String(), "42001: unexpected token"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
