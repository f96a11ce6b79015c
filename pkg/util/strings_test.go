package util

import (
	"reflect"
	"testing"
)

func TestSplitSymbols(t *testing.T) {
	got := SplitSymbols(" aapl, msft,,AAPL , brk.b")
	want := []string{"AAPL", "MSFT", "BRK.B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitSymbols=%v, want %v", got, want)
	}
	if len(SplitSymbols("")) != 0 {
		t.Fatal("empty input should give no symbols")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("12", 3) != 12 || ParseIntDefault("", 3) != 3 || ParseIntDefault("x", 3) != 3 {
		t.Fatal("unexpected ParseIntDefault results")
	}
}
