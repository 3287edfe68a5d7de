package models

import (
	"fmt"
	"strings"
)

// Rank is a SABO skill tier. Each main rank has a "+" sub-rank above it.
type Rank string

const (
	RankK     Rank = "K"
	RankKPlus Rank = "K+"
	RankI     Rank = "I"
	RankIPlus Rank = "I+"
	RankH     Rank = "H"
	RankHPlus Rank = "H+"
	RankG     Rank = "G"
	RankGPlus Rank = "G+"
	RankF     Rank = "F"
	RankFPlus Rank = "F+"
	RankE     Rank = "E"
	RankEPlus Rank = "E+"
)

// AllRanks lists the tiers from weakest to strongest.
var AllRanks = []Rank{
	RankK, RankKPlus, RankI, RankIPlus, RankH, RankHPlus,
	RankG, RankGPlus, RankF, RankFPlus, RankE, RankEPlus,
}

var rankOrdinals = func() map[Rank]int {
	m := make(map[Rank]int, len(AllRanks))
	for i, r := range AllRanks {
		m[r] = i + 1
	}
	return m
}()

// Ordinal returns 1 for K up to 12 for E+, or 0 for an unknown rank.
func (r Rank) Ordinal() int {
	return rankOrdinals[r]
}

func (r Rank) IsValid() bool {
	return r.Ordinal() > 0
}

func (r Rank) String() string {
	return string(r)
}

// ParseRank accepts ranks case-insensitively and with surrounding spaces.
func ParseRank(s string) (Rank, error) {
	r := Rank(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}
