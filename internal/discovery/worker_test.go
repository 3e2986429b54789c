package discovery

import "testing"

func TestGuessMimeType(t *testing.T) {
	cases := map[string]string{
		"statement.pdf":  "application/pdf",
		"scan.PNG":       "image/png",
		"photo.jpg":      "image/jpeg",
		"photo.jpeg":     "image/jpeg",
		"page.tiff":      "image/tiff",
		"unknown.xyzzzz": "application/octet-stream",
	}
	for name, want := range cases {
		if got := guessMimeType(name); got != want {
			t.Errorf("guessMimeType(%q) = %q, want %q", name, got, want)
		}
	}
}
