package board

import "testing"

func TestTerminalPositions(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		checkmate bool
		stalemate bool
	}{
		// Back rank mate: g7/h7 pawns block the king.
		{"back-rank-mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, false},
		// The king can take the checking rook.
		{"king-captures-checker", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false, false},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false, true},
		{"start", StartFEN, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			t.Log(b)

			var legal MoveList
			b.GenerateLegalMoves(&legal)
			t.Logf("in check: %v, legal moves: %d", b.InCheck(), legal.Len())

			if got := b.IsCheckmate(); got != tc.checkmate {
				t.Errorf("IsCheckmate = %v, want %v", got, tc.checkmate)
			}
			if got := b.IsStalemate(); got != tc.stalemate {
				t.Errorf("IsStalemate = %v, want %v", got, tc.stalemate)
			}
			if (tc.checkmate || tc.stalemate) == b.HasLegalMove() {
				t.Errorf("HasLegalMove = %v disagrees with terminal state", b.HasLegalMove())
			}
		})
	}
}
