// Package scoring implements the listing value scoring engine: row
// position evaluation, resale demand prediction, and composite batch
// ranking. Everything here is pure and deterministic; out-of-range
// inputs are clamped or mapped to neutral defaults rather than
// rejected, so a malformed listing degrades to an average score instead
// of failing a whole sweep.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
)

// UnknownRowRank is the sentinel for row labels that cannot be mapped
// to a numeric rank.
const UnknownRowRank = -1

// neutralRowScore is assumed when either the rank or the section row
// count is unknown.
const neutralRowScore = 50

// lastRowScore is the floor for the very back of a section. Back rows
// keep standing value, so the curve never reaches zero.
const lastRowScore = 20

// generalAdmissionLabels map straight to the front rank: there is no
// assigned row, and GA floor access prices like front seating.
var generalAdmissionLabels = map[string]struct{}{
	"GA":                {},
	"GENERAL ADMISSION": {},
	"PIT":               {},
}

// ParseRowToRank converts a free-text row label into a 1-based rank.
// Rules, in order: general-admission keyword, purely numeric, single
// letter A-Z, double letter continuing past Z (AA=27, AB=28, ...).
// Anything else returns UnknownRowRank. The keyword rule runs first
// because "GA" would otherwise parse as a letter pair.
func ParseRowToRank(label string) int {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	if normalized == "" {
		return UnknownRowRank
	}

	if _, ok := generalAdmissionLabels[normalized]; ok {
		return 1
	}

	if n, err := strconv.Atoi(normalized); err == nil {
		if n < 1 {
			return UnknownRowRank
		}
		return n
	}

	switch len(normalized) {
	case 1:
		if v := letterValue(normalized[0]); v > 0 {
			return v
		}
	case 2:
		first := letterValue(normalized[0])
		second := letterValue(normalized[1])
		if first > 0 && second > 0 {
			return first*26 + second
		}
	}

	return UnknownRowRank
}

func letterValue(c byte) int {
	if c < 'A' || c > 'Z' {
		return 0
	}
	return int(c-'A') + 1
}

// EvaluateRowPosition scores how good a row is within its section,
// 0-100. The front row scores 100 and the last row floors at
// lastRowScore; in between the curve follows sqrt(1-position), so the
// front half of a section scores markedly higher than linear
// interpolation would give. Unknown rank or row count yields the
// neutral default; ranks past the known row count are treated as the
// last row.
func EvaluateRowPosition(rowRank, totalRows int) int {
	if rowRank < 1 || totalRows < 1 {
		return neutralRowScore
	}
	if rowRank > totalRows {
		rowRank = totalRows
	}
	if totalRows == 1 {
		return 100
	}

	position := float64(rowRank-1) / float64(totalRows-1)
	score := lastRowScore + (100-lastRowScore)*math.Sqrt(1-position)
	return int(math.Round(score))
}

// IsFrontRow reports whether rank falls in the first three rows.
// The unknown sentinel is never a front row.
func IsFrontRow(rank int) bool {
	return rank >= 1 && rank <= 3
}

// tierRowCounts are fallback section depths by tier ordinal, used when
// the venue layout is not known. Mid-tier doubles as the global
// default.
var tierRowCounts = map[int]int{
	listing.TierPremium.Ordinal():      20,
	listing.TierUpperPremium.Ordinal(): 30,
	listing.TierMid.Ordinal():          25,
	listing.TierUpperLevel.Ordinal():   20,
	listing.TierObstructed.Ordinal():   15,
}

const defaultTotalRows = 25

// EstimateTotalRows returns the assumed row count for a tier ordinal.
func EstimateTotalRows(tierOrdinal int) int {
	if rows, ok := tierRowCounts[tierOrdinal]; ok {
		return rows
	}
	return defaultTotalRows
}
