package service

import "testing"

func TestFoldDescription(t *testing.T) {
	ts := NewTextService()

	tests := []struct {
		in   string
		want string
	}{
		{"Água Mineral c/ Gás ", "AGUA MINERAL C/ GAS"},
		{"café  torrado\te moído", "CAFE TORRADO E MOIDO"},
		{"AÇÚCAR", "ACUCAR"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := ts.FoldDescription(tt.in); got != tt.want {
			t.Errorf("FoldDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReduceToLength(t *testing.T) {
	ts := NewTextService()

	if got := ts.ReduceToLength("ARROZ BRANCO TIPO 1", 12); got != "ARROZ BRANCO" {
		t.Errorf("ReduceToLength = %q, want cut at the word boundary", got)
	}
	if got := ts.ReduceToLength("ARROZ", 100); got != "ARROZ" {
		t.Errorf("ReduceToLength = %q, want input unchanged", got)
	}
	// single word longer than the budget gets a hard cut
	if got := ts.ReduceToLength("SUPERCALIFRAGILISTIC", 5); got != "SUPER" {
		t.Errorf("ReduceToLength = %q, want SUPER", got)
	}
}

func TestClearAndReduce(t *testing.T) {
	ts := NewTextService()

	if got := ts.ClearAndReduce(" feijão   carioca ", 100); got != "FEIJAO CARIOCA" {
		t.Errorf("ClearAndReduce = %q, want %q", got, "FEIJAO CARIOCA")
	}
	got := ts.ClearAndReduce("feijão carioca premium", 14)
	if got != "FEIJAO CARIOCA" {
		t.Errorf("ClearAndReduce = %q, want bounded at 14 bytes", got)
	}
}
