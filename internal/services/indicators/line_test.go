package indicators

import (
	"encoding/json"
	"testing"
)

func TestLine_MarshalJSONUsesNull(t *testing.T) {
	l := Line{{}, Defined(1.5), {}, Defined(-2)}
	b, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `[null,1.5,null,-2]`; got != want {
		t.Fatalf("json=%s, want %s", got, want)
	}

	var back Line
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 4 || back[0].Valid || !back[1].Valid || back[3].Float != -2 {
		t.Fatalf("unexpected round trip %+v", back)
	}
}

func TestLine_Accessors(t *testing.T) {
	l := Line{{}, {}, Defined(3), Defined(4)}
	if i := l.FirstValid(); i != 2 {
		t.Fatalf("FirstValid=%d, want 2", i)
	}
	if n := l.CountValid(); n != 2 {
		t.Fatalf("CountValid=%d, want 2", n)
	}
	if v, ok := l.Last(); !ok || v != 4 {
		t.Fatalf("Last=%v,%v", v, ok)
	}
	if _, ok := l.At(0); ok {
		t.Fatal("At(0) should be undefined")
	}
	if _, ok := l.At(10); ok {
		t.Fatal("At out of range should be undefined")
	}
	c := l.Compact()
	if len(c) != 2 || c[0] != 3 || c[1] != 4 {
		t.Fatalf("Compact=%v", c)
	}
	if (Line{}).FirstValid() != -1 {
		t.Fatal("empty line FirstValid should be -1")
	}
}

func TestRequirePeriod_Panics(t *testing.T) {
	for name, fn := range map[string]func(){
		"sma":       func() { SMA([]float64{1, 2}, 0) },
		"ema":       func() { EMA([]float64{1, 2}, -1) },
		"rsi":       func() { RSI([]float64{1, 2}, 0, RSIWilder) },
		"bollinger": func() { Bollinger([]float64{1, 2}, 0, 2) },
		"macd":      func() { MACD([]float64{1, 2}, 12, 0, 9) },
		"momentum":  func() { Momentum([]float64{1, 2}, 0) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic for non-positive period", name)
				}
			}()
			fn()
		})
	}
}
