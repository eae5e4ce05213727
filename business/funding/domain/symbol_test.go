package domain

import "testing"

func TestUnifiedSymbol(t *testing.T) {
	if got := UnifiedSymbol("btc", "usdt", "usdt"); got != "BTC/USDT:USDT" {
		t.Errorf("UnifiedSymbol = %q, want BTC/USDT:USDT", got)
	}
	if got := UnifiedSymbol("SOL", "USD", "USD"); got != "SOL/USD:USD" {
		t.Errorf("UnifiedSymbol = %q, want SOL/USD:USD", got)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTC/USDT:USDT", "BTC"},
		{"SOL/USD:USD", "SOL"},
		{"eth/usdt:usdt", "ETH"},
		{"BTCUSDT", "BTC"},
		{"SOL_USDC", "SOL"},
		{"1000BONK/USDT:USDT", "BONK"},
		{"1MBONK", "BONK"},
		{"kPEPE/USD:USD", "PEPE"},
		{"KAVA/USDT:USDT", "KAVA"},
		{"1INCH/USDT:USDT", "1INCH"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeSymbol(tt.in); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
