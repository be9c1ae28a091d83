package hangul

import "testing"

func TestJamo_Decomposes(t *testing.T) {
	got := Jamo("카드")
	if len(got) != 4 {
		t.Fatalf("len(Jamo(카드)) = %d, want 4", len(got))
	}
	if len(Jamo("국 민!")) != 6 {
		t.Error("whitespace and punctuation must be dropped")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tc := range tests {
		if got := Distance([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("나라사랑카드", "나라사랑카드"); s != 1 {
		t.Errorf("identical strings: %f", s)
	}
	// single jamo slip: 랑 → 란
	if s := Similarity("나라사란카드", "나라사랑카드"); s < 0.85 {
		t.Errorf("one-jamo typo should stay above threshold, got %f", s)
	}
	if s := Similarity("아이행복카드", "국민행복카드"); s >= 0.85 {
		t.Errorf("different products must stay below threshold, got %f", s)
	}
}
