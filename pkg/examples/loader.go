package examples

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
)

// LoadDir builds a Set from a directory tree with one subdirectory per label:
//
//	examples/
//	  Xoài cát/
//	    1.jpg
//	    2.png
//	  Sầu riêng/
//	    a.webp
//
// Subdirectories are added in name order, and files within a label too.
// Hidden entries are skipped. Loose files in dir are ignored.
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read examples dir: %w", err)
	}

	set := New()
	for _, entry := range entries {
		if !entry.IsDir() || isHidden(entry.Name()) {
			continue
		}

		labelDir := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(labelDir)
		if err != nil {
			return nil, fmt.Errorf("read label dir %s: %w", labelDir, err)
		}

		var paths []string
		for _, f := range files {
			if f.IsDir() || isHidden(f.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(labelDir, f.Name()))
		}

		if err := AddFiles(set, entry.Name(), paths); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// AddFiles loads each path as an image and adds them under label in the
// given order.
func AddFiles(set *Set, label string, paths []string) error {
	images := make([]produce.Image, 0, len(paths))
	for _, p := range paths {
		img, err := produce.LoadImageFile(p)
		if err != nil {
			return fmt.Errorf("label %q: %w", label, err)
		}
		images = append(images, img)
	}

	return set.Add(label, images)
}

// ParseExampleFlag splits a "label=file1,file2" flag value.
func ParseExampleFlag(value string) (string, []string, error) {
	label, files, ok := strings.Cut(value, "=")
	if !ok {
		return "", nil, fmt.Errorf("example %q: expected label=file[,file...]: %w", value, agrierr.ErrValidation)
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return "", nil, fmt.Errorf("example %q: %w", value, agrierr.ErrEmptyLabel)
	}

	var paths []string
	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			paths = append(paths, f)
		}
	}
	if len(paths) == 0 {
		return "", nil, fmt.Errorf("example %q: %w", value, agrierr.ErrEmptyImageSet)
	}
	return label, paths, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
