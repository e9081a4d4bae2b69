package engine

import (
	"fmt"
	"math"
	"strconv"
)

// Intermediate results are carried unrounded; subtotals are shown and
// accumulated to three decimals, the final total to two.

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// fmt3 renders a 3-decimal amount right-aligned in 8 columns.
func fmt3(v float64) string { return fmt.Sprintf("%8.3f", round3(v)) }

// fmt2 renders a 2-decimal amount right-aligned in 7 columns.
func fmt2(v float64) string { return fmt.Sprintf("%7.2f", round2(v)) }

// fmtAmount renders a document amount without trailing zeros.
func fmtAmount(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
