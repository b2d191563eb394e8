package scoring

import "testing"

func TestParseRowToRank(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"A", 1},
		{"K", 11},
		{"Z", 26},
		{"AA", 27},
		{"AB", 28},
		{"12", 12},
		{"  7 ", 7},
		{"ga", 1},
		{"GA", 1},
		{"General Admission", 1},
		{"PIT", 1},
		{"pit", 1},
		{" b ", 2},
		{"", -1},
		{"   ", -1},
		{"XYZ", -1},
		{"Row 5", -1},
		{"A1", -1},
		{"0", -1},
		{"-3", -1},
	}

	for _, tc := range cases {
		if got := ParseRowToRank(tc.label); got != tc.want {
			t.Fatalf("ParseRowToRank(%q) = %d, want %d", tc.label, got, tc.want)
		}
	}
}

func TestEvaluateRowPositionBounds(t *testing.T) {
	if got := EvaluateRowPosition(1, 20); got != 100 {
		t.Fatalf("front row should score 100, got %d", got)
	}
	if got := EvaluateRowPosition(20, 20); got < 20 {
		t.Fatalf("last row should floor at 20, got %d", got)
	}
	if got := EvaluateRowPosition(5, 0); got != 50 {
		t.Fatalf("unknown row count should score neutral 50, got %d", got)
	}
	if got := EvaluateRowPosition(0, 20); got != 50 {
		t.Fatalf("unknown rank should score neutral 50, got %d", got)
	}
	if got := EvaluateRowPosition(-1, 20); got != 50 {
		t.Fatalf("sentinel rank should score neutral 50, got %d", got)
	}
	if got, want := EvaluateRowPosition(100, 20), EvaluateRowPosition(20, 20); got != want {
		t.Fatalf("rank beyond row count should clamp to last row: got %d want %d", got, want)
	}
	if got := EvaluateRowPosition(1, 1); got != 100 {
		t.Fatalf("single-row section front should score 100, got %d", got)
	}
}

func TestEvaluateRowPositionCurve(t *testing.T) {
	prev := EvaluateRowPosition(1, 20)
	for rank := 2; rank <= 20; rank++ {
		score := EvaluateRowPosition(rank, 20)
		if score >= prev {
			t.Fatalf("score must strictly decrease: rank %d scored %d after %d", rank, score, prev)
		}
		prev = score
	}

	// Front-loaded curve: the early rows keep much more value than a
	// linear scale would give them.
	if diff := EvaluateRowPosition(2, 20) - EvaluateRowPosition(10, 20); diff <= 10 {
		t.Fatalf("curve not front-loaded enough: diff %d", diff)
	}
}

func TestIsFrontRow(t *testing.T) {
	for _, rank := range []int{1, 2, 3} {
		if !IsFrontRow(rank) {
			t.Fatalf("rank %d should be front row", rank)
		}
	}
	for _, rank := range []int{0, -1, 4, 10} {
		if IsFrontRow(rank) {
			t.Fatalf("rank %d should not be front row", rank)
		}
	}
}

func TestEstimateTotalRows(t *testing.T) {
	cases := map[int]int{
		1:  20,
		2:  30,
		3:  25,
		4:  20,
		5:  15,
		99: 25,
		0:  25,
	}
	for tier, want := range cases {
		if got := EstimateTotalRows(tier); got != want {
			t.Fatalf("EstimateTotalRows(%d) = %d, want %d", tier, got, want)
		}
	}
}
