package ledger

import (
	"time"

	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
)

func maturity(l *MoveLine) time.Time {
	if l.DateMaturity != nil {
		return *l.DateMaturity
	}
	return l.Date
}

func decimalMin(a, b types.Money) types.Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

func moveIDsOf(lines []*MoveLine) []id.ID {
	ids := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MoveID)
	}
	return id.Unique(ids)
}

// LineIDs returns the IDs of lines.
func LineIDs(lines []*MoveLine) []id.ID {
	ids := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	return ids
}

// AllLines flattens the lines of moves.
func AllLines(moves []*Move) []*MoveLine {
	var out []*MoveLine
	for _, m := range moves {
		out = append(out, m.Lines...)
	}
	return out
}
