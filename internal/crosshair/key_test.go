package crosshair

import "testing"

func TestChartKeyRoundTrip(t *testing.T) {
	cases := []ChartKey{
		{Symbol: "EURUSD", Timeframe: "60", ChartType: "Candlesticks"},
		{Symbol: "OANDA:EUR_USD", Timeframe: "1D", ChartType: "HeikinAshi"},
	}
	for _, want := range cases {
		got, err := ParseChartKey(want.String())
		if err != nil {
			t.Fatalf("ParseChartKey(%q) error = %v", want.String(), err)
		}
		if got != want {
			t.Fatalf("ParseChartKey(%q) = %+v; want %+v", want.String(), got, want)
		}
	}
}

func TestParseChartKeyRejectsMissingSegments(t *testing.T) {
	for _, s := range []string{"", "EURUSD", "EURUSD_60", "EURUSD_60_", "_60_Bars"} {
		if _, err := ParseChartKey(s); err == nil {
			t.Fatalf("ParseChartKey(%q) expected error", s)
		}
	}
}

func TestObjectNamesCarryKey(t *testing.T) {
	k := ChartKey{Symbol: "EURUSD", Timeframe: "60", ChartType: "Candlesticks"}
	if got, want := k.objectName("Line"), "EURUSD_60_Candlesticks_Line"; got != want {
		t.Fatalf("objectName = %q; want %q", got, want)
	}
}

func TestScopeMatches(t *testing.T) {
	src := ChartKey{Symbol: "EURUSD", Timeframe: "60", ChartType: "Candlesticks"}
	sameSymbol := ChartKey{Symbol: "EURUSD", Timeframe: "240", ChartType: "Candlesticks"}
	sameTF := ChartKey{Symbol: "GBPUSD", Timeframe: "60", ChartType: "Bars"}
	other := ChartKey{Symbol: "USDJPY", Timeframe: "1D", ChartType: "Line"}

	tests := []struct {
		scope Scope
		peer  ChartKey
		want  bool
	}{
		{ScopeAll, other, true},
		{ScopeSymbol, sameSymbol, true},
		{ScopeSymbol, sameTF, false},
		{ScopeTimeFrame, sameTF, true},
		{ScopeTimeFrame, sameSymbol, false},
	}
	for _, tc := range tests {
		if got := tc.scope.Matches(src, tc.peer); got != tc.want {
			t.Fatalf("%s.Matches(%s) = %v; want %v", tc.scope, tc.peer, got, tc.want)
		}
	}
}

func TestParseScope(t *testing.T) {
	tests := map[string]Scope{
		"":          ScopeAll,
		"ALL":       ScopeAll,
		"timeframe": ScopeTimeFrame,
		"tf":        ScopeTimeFrame,
		" Symbol ":  ScopeSymbol,
	}
	for in, want := range tests {
		got, err := ParseScope(in)
		if err != nil {
			t.Fatalf("ParseScope(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseScope(%q) = %v; want %v", in, got, want)
		}
	}
	if _, err := ParseScope("exchange"); err == nil {
		t.Fatal("ParseScope(exchange) expected error")
	}

	var s Scope
	if err := s.UnmarshalText([]byte("symbol")); err != nil || s != ScopeSymbol {
		t.Fatalf("UnmarshalText(symbol) = %v, %v", s, err)
	}
}
