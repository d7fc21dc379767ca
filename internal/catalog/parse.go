package catalog

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// imageExtensions are the file types the rotation can display.
// GIFs appear in some listings but are never usable as wallpapers.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}

// skipLinks are directory-lister navigation links, not content.
var skipLinks = map[string]bool{
	"..":         true,
	"/":          true,
	"../":        true,
	"?sort=name": true,
	"?sort=size": true,
	"?sort=date": true,
}

var (
	// parenthesizedRe matches translated names in parentheses,
	// e.g. "Earth (Terre)".
	parenthesizedRe = regexp.MustCompile(`\s*\([^)]*\)`)

	// scanDateRe matches the modification stamp some listers append
	// after a dash, e.g. "Earth—2025-04-06 09:35:07".
	scanDateRe = regexp.MustCompile(`[—–-]\d{4}`)
)

// ParseThemes extracts theme directories from a directory-lister page.
// Links to files, navigation entries and empty entries are ignored.
func ParseThemes(html []byte, baseURL string) ([]Theme, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var themes []Theme

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())

		if href == "" || text == "" || skipLinks[href] {
			return
		}

		if hasImageExtension(href) || strings.HasSuffix(strings.ToLower(href), ".gif") {
			return
		}

		// A directory link ends in a slash, or its last segment
		// carries no extension.
		if !strings.HasSuffix(href, "/") && strings.Contains(path.Base(href), ".") {
			return
		}

		name := CleanThemeName(text)
		if name == "" {
			// Fall back to the directory segment of the URL.
			name = CleanThemeName(decodedBase(href))
		}

		if name == "" {
			return
		}

		themeURL := resolveURL(baseURL, href)
		if !strings.HasSuffix(themeURL, "/") {
			themeURL += "/"
		}

		themes = append(themes, Theme{
			Name:         name,
			OriginalName: text,
			URL:          themeURL,
		})
	})

	return themes, nil
}

// ParseImages extracts image links from a theme listing page.
func ParseImages(html []byte, pageURL string) ([]Image, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var images []Image

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !hasImageExtension(href) {
			return
		}

		// The href stays percent-encoded for the request URL; only
		// the filename is decoded for display and cache naming.
		images = append(images, Image{
			Filename: decodedBase(href),
			URL:      resolveURL(pageURL, href),
		})
	})

	return images, nil
}

// CleanThemeName turns a listing entry's text into a name safe to use
// as a cache subdirectory: parenthesized translations and trailing scan
// dates are stripped, characters invalid in Windows paths are dropped,
// whitespace is collapsed, and the result is NFC-normalized.
func CleanThemeName(raw string) string {
	name := parenthesizedRe.ReplaceAllString(raw, "")

	if loc := scanDateRe.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}

	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}

		return r
	}, name)

	name = strings.Join(strings.Fields(name), " ")

	return norm.NFC.String(name)
}

func hasImageExtension(href string) bool {
	lower := strings.ToLower(href)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

// decodedBase returns the percent-decoded last path segment of href.
func decodedBase(href string) string {
	base := path.Base(strings.TrimSuffix(href, "/"))

	decoded, err := url.PathUnescape(base)
	if err != nil {
		return base
	}

	return decoded
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	bu, err := url.Parse(base)
	if err != nil {
		return href
	}

	ru, err := url.Parse(href)
	if err != nil {
		return href
	}

	return bu.ResolveReference(ru).String()
}
