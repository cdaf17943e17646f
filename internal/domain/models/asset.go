package models

import (
	"fmt"
	"sort"

	"OracleEngine/pkg/util"
)

// Universe is the fixed set of assets the engine will score.
type Universe struct {
	list []string
	set  map[string]struct{}
}

func NewUniverse(symbols []string) *Universe {
	u := &Universe{set: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		s = util.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, dup := u.set[s]; dup {
			continue
		}
		u.set[s] = struct{}{}
		u.list = append(u.list, s)
	}
	return u
}

// Resolve normalizes symbol and fails with ErrUnsupportedAsset when it is
// outside the universe.
func (u *Universe) Resolve(symbol string) (string, error) {
	s := util.NormalizeSymbol(symbol)
	if _, ok := u.set[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAsset, symbol)
	}
	return s, nil
}

func (u *Universe) Contains(symbol string) bool {
	_, err := u.Resolve(symbol)
	return err == nil
}

// Symbols returns the universe in configuration order.
func (u *Universe) Symbols() []string {
	return append([]string(nil), u.list...)
}

func (u *Universe) Sorted() []string {
	out := u.Symbols()
	sort.Strings(out)
	return out
}

// Pair is the quote pair used for display and persistence.
func Pair(asset string) string { return asset + "/USD" }
