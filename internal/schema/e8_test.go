package schema

import "testing"

func TestParseE8(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.5", 1_250_000_000, true},
		{"0.00000001", 1, true},
		{"100", 10_000_000_000, true},
		{"-3.25", -325_000_000, true},
		{"0", 0, true},
		{"0.000000010", 1, true},
		{"92233720368.54775807", maxInt64, true},
		{"0.000000001", 0, false},
		{"", 0, false},
		{".", 0, false},
		{"12a", 0, false},
		{"1..2", 0, false},
		{"92233720369", 0, false},
	}
	for _, c := range cases {
		got, err := ParseE8(c.in)
		if c.ok && err != nil {
			t.Fatalf("ParseE8(%q) unexpected error: %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("ParseE8(%q) expected error, got %d", c.in, got)
		}
		if c.ok && got != c.want {
			t.Fatalf("ParseE8(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatE8RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 1_250_000_000, -325_000_000, 10_000_000_000}
	for _, v := range values {
		got, err := ParseE8(FormatE8(v))
		if err != nil {
			t.Fatalf("round trip %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()
	venue, err := reg.AddVenue("binance", SyncStyleSequenced, false)
	if err != nil {
		t.Fatalf("add venue: %v", err)
	}
	btc, err := reg.AddAsset("BTC")
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	usdt, err := reg.AddAsset("USDT")
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	sym, err := reg.AddSymbol("BTCUSDT", venue, btc, usdt)
	if err != nil {
		t.Fatalf("add symbol: %v", err)
	}
	acct, err := reg.AddAccount("mm-01", venue, "sub-a")
	if err != nil {
		t.Fatalf("add account: %v", err)
	}

	if id, ok := reg.SymbolIDByName("BTCUSDT"); !ok || id != sym {
		t.Fatalf("symbol lookup failed: %d %v", id, ok)
	}
	s, ok := reg.Symbol(sym)
	if !ok || s.Base != btc || s.Quote != usdt || s.VenueID != venue {
		t.Fatalf("symbol fields wrong: %+v", s)
	}
	a, ok := reg.Account(acct)
	if !ok || a.SubAccount != "sub-a" {
		t.Fatalf("account fields wrong: %+v", a)
	}
	if _, err := reg.AddSymbol("ETHUSDT", 99, btc, usdt); err == nil {
		t.Fatal("expected unknown venue error")
	}
	if _, err := reg.AddVenue("binance", SyncStyleSequenced, false); err == nil {
		t.Fatal("expected duplicate venue error")
	}
}
