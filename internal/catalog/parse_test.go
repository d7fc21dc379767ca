package catalog

import "testing"

const listingHTML = `<html><body><h1>Index of /wallpapers/</h1>
<a href="../">..</a>
<a href="?sort=name">Name</a>
<a href="?sort=date">Date</a>
<a href="Earth/">Earth (Terre)&#8212;2025-04-06 09:35:07</a>
<a href="Deep%20Space/">Deep Space</a>
<a href="Nebulae">Nebulae</a>
<a href="stray.jpg">stray.jpg</a>
<a href="animation.gif">animation.gif</a>
<a href="readme.txt">readme.txt</a>
</body></html>`

func TestParseThemes(t *testing.T) {
	t.Parallel()

	themes, err := ParseThemes([]byte(listingHTML), "https://archive.example/wallpapers/")
	if err != nil {
		t.Fatalf("ParseThemes: %v", err)
	}

	if len(themes) != 3 {
		t.Fatalf("themes = %+v, want 3 entries", themes)
	}

	if themes[0].Name != "Earth" {
		t.Errorf("first theme name = %q, want cleaned %q", themes[0].Name, "Earth")
	}

	if themes[0].URL != "https://archive.example/wallpapers/Earth/" {
		t.Errorf("first theme url = %q", themes[0].URL)
	}

	if themes[1].Name != "Deep Space" {
		t.Errorf("second theme name = %q", themes[1].Name)
	}

	// Directory link without a trailing slash still counts as a folder
	// and gains the slash on resolution.
	if themes[2].URL != "https://archive.example/wallpapers/Nebulae/" {
		t.Errorf("third theme url = %q", themes[2].URL)
	}
}

func TestParseThemes_EmptyNameFallsBackToHref(t *testing.T) {
	t.Parallel()

	html := `<a href="Mars%20Rovers/">(Vehicules martiens)</a>`

	themes, err := ParseThemes([]byte(html), "https://archive.example/wallpapers/")
	if err != nil {
		t.Fatalf("ParseThemes: %v", err)
	}

	if len(themes) != 1 || themes[0].Name != "Mars Rovers" {
		t.Fatalf("themes = %+v, want Mars Rovers from decoded href", themes)
	}
}

func TestParseImages(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a href="../">..</a>
<a href="blue%20marble.jpg">blue marble.jpg</a>
<a href="aurora.PNG">aurora.PNG</a>
<a href="thumbs.db">thumbs.db</a>
<a href="https://cdn.example/mirror/ring.webp">ring.webp</a>
</body></html>`

	images, err := ParseImages([]byte(html), "https://archive.example/wallpapers/Earth/")
	if err != nil {
		t.Fatalf("ParseImages: %v", err)
	}

	if len(images) != 3 {
		t.Fatalf("images = %+v, want 3 entries", images)
	}

	// Filename is decoded for display; the URL keeps the server's encoding.
	if images[0].Filename != "blue marble.jpg" {
		t.Errorf("filename = %q", images[0].Filename)
	}

	if images[0].URL != "https://archive.example/wallpapers/Earth/blue%20marble.jpg" {
		t.Errorf("url = %q", images[0].URL)
	}

	if images[2].URL != "https://cdn.example/mirror/ring.webp" {
		t.Errorf("absolute url = %q, want preserved", images[2].URL)
	}
}

func TestCleanThemeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Earth", "Earth"},
		{"translation stripped", "Earth (Terre)", "Earth"},
		{"scan date em dash", "Earth—2025-04-06 09:35:07", "Earth"},
		{"scan date en dash", "Mars–2025-01-01", "Mars"},
		{"scan date hyphen", "Moon-2024-12-31 23:59:59", "Moon"},
		{"hyphenated name survives", "Deep-Sky Objects", "Deep-Sky Objects"},
		{"invalid characters dropped", `Sun: "our" star?`, "Sun our star"},
		{"whitespace collapsed", "  Outer   Planets  ", "Outer Planets"},
		{"everything stripped", "(only a translation)", ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := CleanThemeName(tc.raw); got != tc.want {
				t.Errorf("CleanThemeName(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
