// Package markdown holds the text transformations applied to a deck before
// it is handed to the converter.
package markdown

import (
	"errors"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"presentat/internal/models"
)

var imagePattern = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

// Destinations with these schemes are left byte-identical
var passthroughSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"file":  true,
	"data":  true,
}

// RewriteImagePaths turns relative image references into absolute file URIs
// resolved against baseDir. Text outside image references, alt text and
// references that cannot be resolved are preserved verbatim. An empty
// baseDir leaves the text untouched.
func RewriteImagePaths(text, baseDir string) string {
	if baseDir == "" {
		return text
	}

	return imagePattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := imagePattern.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		alt, dest := sub[1], sub[2]

		rewritten, err := resolveDestination(dest, baseDir)
		if err != nil {
			return match
		}
		return "![" + alt + "](" + rewritten + ")"
	})
}

// resolveDestination rewrites a link destination, keeping any title suffix
func resolveDestination(dest, baseDir string) (string, error) {
	path, title := splitTitle(dest)
	if path == "" {
		return "", &models.Error{Kind: models.KindPathRewrite, Op: "rewrite", Err: errors.New("empty destination")}
	}

	if strings.HasPrefix(path, "<") && strings.HasSuffix(path, ">") {
		path = path[1 : len(path)-1]
	}

	if parsed, err := url.Parse(path); err == nil && passthroughSchemes[strings.ToLower(parsed.Scheme)] {
		return dest, nil
	}

	// destinations may already carry escapes such as %20
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, filepath.FromSlash(path))
	}
	return fileURI(full) + title, nil
}

// fileURI percent-encodes path so characters such as '#', '?', '%' and
// spaces stay part of the file name
func fileURI(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String()
}

// splitTitle separates `img.png "Title"` into the path and ` "Title"`
func splitTitle(dest string) (string, string) {
	trimmed := strings.TrimSpace(dest)
	if strings.HasPrefix(trimmed, "<") {
		if end := strings.Index(trimmed, ">"); end > 0 {
			return trimmed[:end+1], trimmed[end+1:]
		}
	}
	for i, r := range trimmed {
		if r == ' ' || r == '\t' {
			rest := strings.TrimLeft(trimmed[i:], " \t")
			if rest != "" && strings.ContainsRune(`"'(`, rune(rest[0])) {
				return trimmed[:i], trimmed[i:]
			}
			break
		}
	}
	return trimmed, ""
}
