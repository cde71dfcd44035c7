package evaluate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExts are the file extensions treated as images when enumerating a
// directory
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// preferredExt is chosen when several candidates share a base name
const preferredExt = ".png"

// Entry identifies one image taking part in an evaluation
type Entry struct {
	// Name is the file name of the image
	Name string
	// Path is the location to read the image from
	Path string
}

// Stem returns the name without its extension
func (e Entry) Stem() string {
	return strings.TrimSuffix(e.Name, filepath.Ext(e.Name))
}

// CandidateLookup resolves a reference entry to its generated image, ok is
// false if none exists
type CandidateLookup func(ref Entry) (cand Entry, ok bool)

// DirectoryEntries returns the image files in dir sorted by name.  Hidden
// files, sub directories and files without an image extension are ignored.
func DirectoryEntries(dir string) ([]Entry, error) {

	files, err := os.ReadDir(dir)

	if err != nil {
		return nil, fmt.Errorf("error reading image directory: %w", err)
	}

	var entries []Entry

	for _, file := range files {
		if !isImage(file) {
			continue
		}

		entries = append(entries, Entry{
			Name: file.Name(),
			Path: filepath.Join(dir, file.Name()),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// DirectoryLookup indexes the images in dir by base name and returns a lookup
// matching references by base name regardless of extension.  When several
// images share a base name the .png is chosen, otherwise the first by name.
func DirectoryLookup(dir string) (CandidateLookup, error) {

	entries, err := DirectoryEntries(dir)

	if err != nil {
		return nil, err
	}

	index := make(map[string]Entry, len(entries))

	// entries are sorted so the first seen per stem wins unless a png follows
	for _, e := range entries {
		stem := e.Stem()
		prev, seen := index[stem]

		if !seen || (!hasExt(prev.Name, preferredExt) && hasExt(e.Name, preferredExt)) {
			index[stem] = e
		}
	}

	return func(ref Entry) (Entry, bool) {
		cand, ok := index[ref.Stem()]
		return cand, ok
	}, nil
}

// MapLookup returns a lookup over an in memory set of candidates keyed by
// base name
func MapLookup(cands map[string]Entry) CandidateLookup {
	return func(ref Entry) (Entry, bool) {
		cand, ok := cands[ref.Stem()]
		return cand, ok
	}
}

func isImage(file os.DirEntry) bool {

	if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
		return false
	}

	return imageExts[strings.ToLower(filepath.Ext(file.Name()))]
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
