package board

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (b *Board) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml MoveList
	b.GeneratePseudoLegalMoves(&ml)
	us := b.SideToMove

	var nodes uint64
	var undo UndoInfo
	for _, m := range ml.Slice() {
		b.MakeMove(m, &undo)
		if !b.IsCheck(us) {
			if depth == 1 {
				nodes++
			} else {
				nodes += b.Perft(depth - 1)
			}
		}
		b.UnmakeMove(m, &undo)
	}
	return nodes
}

// DivideEntry is one root move and the size of its subtree.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs perft per legal root move, in generation order.
func (b *Board) Divide(depth int) []DivideEntry {
	var ml MoveList
	b.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, 0, ml.Len())

	var undo UndoInfo
	for _, m := range ml.Slice() {
		b.MakeMove(m, &undo)
		out = append(out, DivideEntry{Move: m, Nodes: b.Perft(depth - 1)})
		b.UnmakeMove(m, &undo)
	}
	return out
}

// ParallelPerft is Divide with each root subtree counted on its own
// goroutine, at most workers at a time (unbounded if workers <= 0). Every
// goroutine owns a copy-made child board, so b itself is never touched.
func (b *Board) ParallelPerft(ctx context.Context, depth, workers int) ([]DivideEntry, error) {
	if depth <= 0 {
		return nil, nil
	}
	var ml MoveList
	b.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, ml.Len())

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, m := range ml.Slice() {
		child := b.ExecuteMove(m)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = DivideEntry{Move: m, Nodes: child.Perft(depth - 1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SumDivide totals the node counts of a divide listing.
func SumDivide(entries []DivideEntry) uint64 {
	var total uint64
	for _, e := range entries {
		total += e.Nodes
	}
	return total
}
