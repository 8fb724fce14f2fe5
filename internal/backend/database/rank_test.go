package database

import (
	"sort"
	"testing"
)

func TestNextRank(t *testing.T) {
	tests := []struct {
		prev, want string
	}{
		{"", "U"},
		{"U", "V"},
		{"Uz", "V"},
		{"z", "zU"},
		{"zz", "zzU"},
		{"UU", "UV"},
	}
	for _, tt := range tests {
		if got := NextRank(tt.prev); got != tt.want {
			t.Errorf("NextRank(%q) = %q, want %q", tt.prev, got, tt.want)
		}
	}
}

func TestNextRank_StaysShort(t *testing.T) {
	prev := ""
	for i := 0; i < 200; i++ {
		next := NextRank(prev)
		if next <= prev {
			t.Fatalf("NextRank(%q) = %q does not sort after it", prev, next)
		}
		prev = next
	}
	if len(prev) > 6 {
		t.Fatalf("rank of the 200th photo is %d characters long: %q", len(prev), prev)
	}
}

func TestRankBetween(t *testing.T) {
	tests := []struct {
		prev, next string
	}{
		{"A", "C"},
		{"A", "B"},
		{"", "U"},
		{"", "1"},
		{"", "10"},
		{"A", "A1"},
		{"AZ", "B0"},
		{"U", "UU"},
	}
	for _, tt := range tests {
		got := RankBetween(tt.prev, tt.next)
		if !(got > tt.prev && got < tt.next) {
			t.Errorf("RankBetween(%q, %q) = %q, want strictly between", tt.prev, tt.next, got)
		}
	}
	if got := RankBetween("U", ""); got != "V" {
		t.Errorf("RankBetween(\"U\", \"\") = %q, want %q", got, "V")
	}
}

func TestRankWithin(t *testing.T) {
	tests := []struct {
		prev, rank, next string
		want             bool
	}{
		{"A", "B", "C", true},
		{"A", "A", "C", false},
		{"", "A", "B", true},
		{"A", "B", "", true},
		{"", "A", "", false},
	}
	for _, tt := range tests {
		if got := rankWithin(tt.prev, tt.rank, tt.next); got != tt.want {
			t.Errorf("rankWithin(%q, %q, %q) = %v, want %v", tt.prev, tt.rank, tt.next, got, tt.want)
		}
	}
}

func applyRanks(current, updates map[string]string) map[string]string {
	out := make(map[string]string, len(current))
	for id, r := range current {
		out[id] = r
	}
	for id, r := range updates {
		out[id] = r
	}
	return out
}

func assertOrdered(t *testing.T, ranks map[string]string, want []string) {
	t.Helper()
	ids := make([]string, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ranks[ids[i]] < ranks[ids[j]] })
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v (ranks %+v)", ids, want, ranks)
		}
	}
}

func TestRerank_NoChange(t *testing.T) {
	current := map[string]string{"a": "A", "b": "B", "c": "C"}
	if upd := Rerank(current, []string{"a", "b", "c"}); len(upd) != 0 {
		t.Fatalf("expected no updates, got: %+v", upd)
	}
}

func TestRerank_SwapAdjacent(t *testing.T) {
	current := map[string]string{"a": "A", "b": "B", "c": "C"}
	order := []string{"b", "a", "c"}
	upd := Rerank(current, order)
	if len(upd) == 0 {
		t.Fatal("expected at least one update")
	}
	assertOrdered(t, applyRanks(current, upd), order)
}

func TestRerank_UnrankedAtFront(t *testing.T) {
	current := map[string]string{"a": "B", "b": "C", "c": "D", "d": ""}
	order := []string{"d", "a", "b", "c"}
	upd := Rerank(current, order)
	if _, ok := upd["d"]; !ok {
		t.Fatalf("expected an update for 'd', got: %+v", upd)
	}
	assertOrdered(t, applyRanks(current, upd), order)
}

func TestRerank_MovesOnlyWhatIsNeeded(t *testing.T) {
	current := map[string]string{"a": "A", "b": "B", "c": "C", "d": "D"}
	order := []string{"a", "c", "b", "d"}
	upd := Rerank(current, order)
	if _, ok := upd["a"]; ok {
		t.Errorf("'a' should keep its rank, got %+v", upd)
	}
	if _, ok := upd["d"]; ok {
		t.Errorf("'d' should keep its rank, got %+v", upd)
	}
	assertOrdered(t, applyRanks(current, upd), order)
}

func TestRerank_RepeatedMoves(t *testing.T) {
	ranks := map[string]string{}
	order := []string{}
	prev := ""
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		prev = NextRank(prev)
		ranks[id] = prev
		order = append(order, id)
	}
	// Repeatedly move the last photo to the front.
	for i := 0; i < 20; i++ {
		last := order[len(order)-1]
		order = append([]string{last}, order[:len(order)-1]...)
		ranks = applyRanks(ranks, Rerank(ranks, order))
		assertOrdered(t, ranks, order)
	}
}
