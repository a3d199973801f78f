package calculator

import (
	"math"
	"testing"

	"github.com/berserkkv/traderrs/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStopLossTakeProfit_Ordering(t *testing.T) {
	prices := []float64{0.5, 1, 100, 25000}
	pcts := []float64{0.1, 0.4, 1, 5, 50, 100}
	for _, p := range prices {
		for _, pct := range pcts {
			if sl := StopLoss(p, pct, model.CommandLong); sl >= p {
				t.Errorf("long stop-loss %f not below price %f (pct %f)", sl, p, pct)
			}
			if tp := TakeProfit(p, pct, model.CommandLong); tp <= p {
				t.Errorf("long take-profit %f not above price %f (pct %f)", tp, p, pct)
			}
			if sl := StopLoss(p, pct, model.CommandShort); sl <= p {
				t.Errorf("short stop-loss %f not above price %f (pct %f)", sl, p, pct)
			}
			if tp := TakeProfit(p, pct, model.CommandShort); tp >= p {
				t.Errorf("short take-profit %f not below price %f (pct %f)", tp, p, pct)
			}
		}
	}
}

func TestStopLossTakeProfit_Wait(t *testing.T) {
	if v := StopLoss(100, 1, model.CommandWait); v != 0 {
		t.Errorf("expected 0 for Wait, got %f", v)
	}
	if v := TakeProfit(100, 1, model.CommandWait); v != 0 {
		t.Errorf("expected 0 for Wait, got %f", v)
	}
}

func TestFees(t *testing.T) {
	for _, c := range []float64{0, 1, 100, 12345.67} {
		if !almostEqual(TakerFee(c), 2*MakerFee(c)) {
			t.Errorf("taker fee should be twice maker fee for capital %f", c)
		}
	}
	if !almostEqual(TakerFee(100), 0.04) {
		t.Errorf("expected taker fee 0.04, got %f", TakerFee(100))
	}
	if !almostEqual(MakerFee(100), 0.02) {
		t.Errorf("expected maker fee 0.02, got %f", MakerFee(100))
	}
}

func TestBuyQuantity(t *testing.T) {
	if q := BuyQuantity(0, 1000); q != 0 {
		t.Errorf("expected 0 quantity at price 0, got %f", q)
	}
	if q := BuyQuantity(50, 1000); !almostEqual(q, 20) {
		t.Errorf("expected quantity 20, got %f", q)
	}
}

func TestPnl_Sign(t *testing.T) {
	// Entry 100, quantity 1, leveraged capital 100.
	if pnl := Pnl(110, 100, 1, model.CommandLong); !almostEqual(pnl, 10) {
		t.Errorf("long pnl: expected 10, got %f", pnl)
	}
	if pnl := Pnl(110, 100, 1, model.CommandShort); !almostEqual(pnl, -10) {
		t.Errorf("short pnl: expected -10, got %f", pnl)
	}
	if pnl := Pnl(110, 100, 0, model.CommandLong); pnl != 0 {
		t.Errorf("zero quantity: expected 0, got %f", pnl)
	}
	if pnl := Pnl(110, 100, 1, model.CommandWait); pnl != 0 {
		t.Errorf("wait side: expected 0, got %f", pnl)
	}
}

func TestRoe(t *testing.T) {
	if roe := Roe(100, 105, 10, model.CommandLong); !almostEqual(roe, 50) {
		t.Errorf("long roe: expected 50, got %f", roe)
	}
	if roe := Roe(100, 105, 10, model.CommandShort); !almostEqual(roe, -50) {
		t.Errorf("short roe: expected -50, got %f", roe)
	}
	if roe := Roe(0, 105, 10, model.CommandLong); roe != 0 {
		t.Errorf("zero entry: expected 0, got %f", roe)
	}
}

func TestShouldClose(t *testing.T) {
	tests := []struct {
		name       string
		price      float64
		stopLoss   float64
		takeProfit float64
		side       model.Command
		want       bool
	}{
		{"long between levels", 100, 99, 101, model.CommandLong, false},
		{"long at stop", 99, 99, 101, model.CommandLong, true},
		{"long below stop", 98, 99, 101, model.CommandLong, true},
		{"long at take-profit", 101, 99, 101, model.CommandLong, true},
		{"short between levels", 100, 101, 99, model.CommandShort, false},
		{"short at stop", 101, 101, 99, model.CommandShort, true},
		{"short below take-profit", 98.5, 101, 99, model.CommandShort, true},
		{"wait always closes", 100, 99, 101, model.CommandWait, true},
	}
	for _, tt := range tests {
		if got := ShouldClose(tt.price, tt.stopLoss, tt.takeProfit, tt.side); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
