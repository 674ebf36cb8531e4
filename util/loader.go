// Package util - input image discovery.
package util

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
}

// DiscoverImageFiles walks dir recursively and returns every regular file
// whose name ends with ext. Matching is case-sensitive, so ".jpg" skips
// ".JPG" files. Paths are returned in lexical order.
//
// Arguments:
// - dir: Root directory to walk.
// - ext: File extension including the dot, e.g. ".jpg".
//
// Returns:
// - []string: Matching file paths.
// - error: Error if the walk fails.
func DiscoverImageFiles(dir, ext string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && filepath.Ext(d.Name()) == ext {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", dir)
	}

	sort.Strings(paths)
	return paths, nil
}

// LoadImageFile reads one image file.
//
// Arguments:
// - path: File path.
//
// Returns:
// - ImageFile: The file with its raw bytes.
// - error: Error if reading fails.
func LoadImageFile(path string) (ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageFile{}, errors.Wrapf(err, "read %s", path)
	}
	return ImageFile{Path: path, Data: data}, nil
}
