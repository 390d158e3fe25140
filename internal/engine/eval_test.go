package engine

import (
	"strings"
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

// mirrorFEN flips the board vertically and swaps colours, side to move and
// castling rights.
func mirrorFEN(fen string) string {
	f := strings.Fields(fen)
	ranks := strings.Split(f[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	f[0] = swapCase(strings.Join(ranks, "/"))
	if f[1] == "w" {
		f[1] = "b"
	} else {
		f[1] = "w"
	}
	if f[2] != "-" {
		f[2] = swapCase(f[2])
	}
	if f[3] != "-" {
		rank := '3'
		if f[3][1] == '3' {
			rank = '6'
		}
		f[3] = string(f[3][0]) + string(rank)
	}
	return strings.Join(f, " ")
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, s)
}

func TestEvaluateSymmetry(t *testing.T) {
	fens := []string{
		board.StartFEN,
		kiwipeteFEN,
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	for _, fen := range fens {
		b := mustParse(t, fen)
		m := mustParse(t, mirrorFEN(fen))
		if Evaluate(b) != Evaluate(m) {
			t.Errorf("%s: eval %d, mirrored %d", fen, Evaluate(b), Evaluate(m))
		}
		if EvaluateMaterial(b) != EvaluateMaterial(m) {
			t.Errorf("%s: material %d, mirrored %d", fen, EvaluateMaterial(b), EvaluateMaterial(m))
		}
	}
	if got := Evaluate(board.StartBoard()); got != 0 {
		t.Errorf("start position eval = %d, want 0", got)
	}
}

func TestEvaluateSideToMove(t *testing.T) {
	// White is a queen up; Black to move sees it as a loss.
	w := mustParse(t, "4k3/8/8/8/8/8/8/3QK3 w - - 0 1")
	b := mustParse(t, "4k3/8/8/8/8/8/8/3QK3 b - - 0 1")
	if Evaluate(w) <= 0 || Evaluate(b) != -Evaluate(w) {
		t.Errorf("white %d black %d", Evaluate(w), Evaluate(b))
	}
}

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want func(int) bool
	}{
		{"free pawn", "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5",
			func(s int) bool { return s == PawnValue }},
		{"defended pawn with knight", "1k1r3q/1ppn3p/p4b2/4p3/8/P2N2P1/1PP1R1BP/2K1Q3 w - - 0 1", "d3e5",
			func(s int) bool { return s < 0 }},
		{"pawn takes queen", "4k3/8/3q4/4P3/8/8/8/4K3 w - - 0 1", "e5d6",
			func(s int) bool { return s == QueenValue }},
		{"quiet move", board.StartFEN, "g1f3",
			func(s int) bool { return s == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustParse(t, tt.fen)
			m, err := board.ParseMove(tt.move, b)
			if err != nil {
				t.Fatal(err)
			}
			if got := SEE(b, m); !tt.want(got) {
				t.Errorf("SEE(%s) = %d", tt.move, got)
			}
		})
	}
}

func TestMoveOrdering(t *testing.T) {
	b := mustParse(t, kiwipeteFEN)
	var ml board.MoveList
	b.GeneratePseudoLegalMoves(&ml)

	killer, _ := board.ParseMove("a2a3", b)
	ttMove, _ := board.ParseMove("e2a6", b)

	var mo MoveOrderer
	mo.UpdateKillers(killer, 3)
	scores := make([]int, ml.Len())
	mo.ScoreMoves(b, &ml, scores, 3, ttMove)
	SortMoves(&ml, scores)

	if ml.Get(0) != ttMove {
		t.Errorf("first move %s, want table move %s", ml.Get(0), ttMove)
	}
	for i := 1; i < ml.Len(); i++ {
		if scores[i] > scores[i-1] {
			t.Fatalf("scores not descending at %d", i)
		}
	}
	killerIdx, quietIdx := -1, -1
	for i, m := range ml.Slice() {
		if m == killer {
			killerIdx = i
		}
		if m.String() == "g2g3" {
			quietIdx = i
		}
	}
	if killerIdx < 0 || quietIdx < 0 || killerIdx > quietIdx {
		t.Errorf("killer at %d, plain quiet at %d", killerIdx, quietIdx)
	}
}
