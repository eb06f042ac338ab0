package market

import (
	"fmt"
	"strings"
)

// Side is the direction of a position or order.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// ParseSide accepts "long"/"short" in any case, plus "buy"/"sell".
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

func (s Side) Valid() bool {
	return s == Long || s == Short
}

// Sign is +1 for longs and -1 for shorts.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

func (s Side) String() string { return string(s) }
