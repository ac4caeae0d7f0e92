package crosshair

import (
	"fmt"
	"strings"
)

// Scope selects which peer charts receive a mirrored gesture.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeTimeFrame
	ScopeSymbol
)

func (s Scope) String() string {
	switch s {
	case ScopeTimeFrame:
		return "timeframe"
	case ScopeSymbol:
		return "symbol"
	default:
		return "all"
	}
}

// ParseScope accepts all, timeframe and symbol (case-insensitive).
func ParseScope(v string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return ScopeAll, nil
	case "timeframe", "time_frame", "tf":
		return ScopeTimeFrame, nil
	case "symbol":
		return ScopeSymbol, nil
	}
	return ScopeAll, fmt.Errorf("unknown scope %q (want all, timeframe or symbol)", v)
}

// Matches reports whether peer is in scope of source.
func (s Scope) Matches(source, peer ChartKey) bool {
	switch s {
	case ScopeSymbol:
		return source.Symbol == peer.Symbol
	case ScopeTimeFrame:
		return source.Timeframe == peer.Timeframe
	default:
		return true
	}
}

func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scope) UnmarshalText(b []byte) error {
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
