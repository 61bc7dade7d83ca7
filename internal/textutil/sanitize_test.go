package textutil

import "testing"

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AVATAR_3D", "AVATAR_3D"},
		{"Amélie: 3D/Edition", "Amelie 3DEdition"},
		{"  Kung-Fu Panda 2 (3D)  ", "Kung-Fu Panda 2 3D"},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Fatalf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNameIgnoresCaseAndSeparators(t *testing.T) {
	if NormalizeName("My_Movie_AVP.mov") != NormalizeName("my movie_AVP.mov") {
		t.Fatalf("expected names to normalise equally: %q vs %q",
			NormalizeName("My_Movie_AVP.mov"), NormalizeName("my movie_AVP.mov"))
	}
	if NormalizeName("My Movie 2_AVP.mov") == NormalizeName("My Movie_AVP.mov") {
		t.Fatal("distinct titles must not collide")
	}
}
