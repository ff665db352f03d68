package page

import "strings"

const (
	htmlExt   = ".html"
	indexFile = "index.html"
)

// Location is where a content item is linked from, served at and written to.
// BuildPath is relative to the build root and always uses forward slashes.
type Location struct {
	LinkURL   string
	FinalURL  string
	BuildPath string
}

// LinkURL is the root-relative URL for sourcePath.
func LinkURL(sourcePath string) string {
	return "/" + sourcePath
}

// IsHTML reports whether sourcePath gets the prettify treatment.
func IsHTML(sourcePath string) bool {
	return strings.HasSuffix(sourcePath, htmlExt)
}

// IsIndex reports whether sourcePath is an index page.
func IsIndex(sourcePath string) bool {
	return strings.HasSuffix(sourcePath, indexFile)
}

// PageLocation maps a page source path to its URLs and build path.
//
// With prettify, "about.html" is served at "/about/" and written to
// "about/index.html"; "blog/index.html" is served at "/blog/" and keeps its
// path. Anything that is not HTML is left alone, as is everything when
// prettify is off.
func PageLocation(sourcePath string, prettify bool) Location {
	link := LinkURL(sourcePath)
	loc := Location{LinkURL: link, FinalURL: link, BuildPath: sourcePath}

	if !prettify || !IsHTML(sourcePath) {
		return loc
	}

	if IsIndex(sourcePath) {
		loc.FinalURL = trimLast(link, indexFile)
		return loc
	}

	loc.FinalURL = trimLast(link, htmlExt) + "/"
	loc.BuildPath = trimLast(sourcePath, htmlExt) + "/" + indexFile
	return loc
}

// ImageLocation maps an image source path; images are never prettified.
func ImageLocation(sourcePath string) Location {
	link := LinkURL(sourcePath)
	return Location{LinkURL: link, FinalURL: link, BuildPath: sourcePath}
}

// trimLast cuts s at the last occurrence of sep, dropping sep and what follows.
func trimLast(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}
