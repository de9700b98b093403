// Package examples manages user-defined few-shot example groups used to bias
// classification toward custom labels.
package examples

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
)

// MaxImagesPerLabel is the upper bound of example images per label.
const MaxImagesPerLabel = 10

// Group is one label with its example images in insertion order.
type Group struct {
	Label  string
	Images []produce.Image
}

// Set is a collection of example groups keyed by case-insensitive label.
// Groups keep insertion order. A nil *Set reads as an empty set; Add on a
// nil *Set returns ErrInvalidState.
//
// Set is safe for concurrent use; the orchestrator only reads it.
type Set struct {
	mu     sync.RWMutex
	groups []*Group
	index  map[string]*Group
}

// New creates an empty Set.
func New() *Set {
	return &Set{index: make(map[string]*Group)}
}

func foldKey(label string) string {
	// cases.Caser keeps state and is not safe for concurrent use.
	return cases.Fold().String(strings.TrimSpace(label))
}

// Add registers images under label. The label must be non-blank and not
// already present under case-insensitive comparison. Between 1 and
// MaxImagesPerLabel images are accepted; above that nothing is added and a
// *errors.TooManyImagesError reports the accepted and rejected counts.
func (s *Set) Add(label string, images []produce.Image) error {
	if s == nil {
		return fmt.Errorf("add to nil example set: %w", agrierr.ErrInvalidState)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return agrierr.ErrEmptyLabel
	}
	if len(images) == 0 {
		return fmt.Errorf("label %q: %w", label, agrierr.ErrEmptyImageSet)
	}
	if len(images) > MaxImagesPerLabel {
		return &agrierr.TooManyImagesError{
			Label:    label,
			Accepted: MaxImagesPerLabel,
			Rejected: len(images) - MaxImagesPerLabel,
		}
	}
	seen := make(map[string]bool, len(images))
	for _, img := range images {
		if err := img.ValidateFormat(); err != nil {
			return fmt.Errorf("label %q: %w", label, err)
		}
		if seen[img.ID] {
			return fmt.Errorf("label %q: image %q: %w", label, img.ID, agrierr.ErrDuplicateItemID)
		}
		seen[img.ID] = true
	}

	key := foldKey(label)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = make(map[string]*Group)
	}
	if existing, ok := s.index[key]; ok {
		return fmt.Errorf("label %q conflicts with %q: %w", label, existing.Label, agrierr.ErrDuplicateLabel)
	}

	g := &Group{Label: label, Images: append([]produce.Image(nil), images...)}
	s.groups = append(s.groups, g)
	s.index[key] = g
	return nil
}

// Remove deletes a label and its images. Removing an absent label is a no-op.
func (s *Set) Remove(label string) {
	if s == nil {
		return
	}
	key := foldKey(label)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}

func (s *Set) removeLocked(key string) {
	g, ok := s.index[key]
	if !ok {
		return
	}
	delete(s.index, key)
	for i, cur := range s.groups {
		if cur == g {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
}

// RemoveImage deletes one image from a label. When the last image goes, the
// label goes with it and labelRemoved is true. ErrNotFound is returned when
// the label or image does not exist.
func (s *Set) RemoveImage(label, imageID string) (labelRemoved bool, err error) {
	if s == nil {
		return false, fmt.Errorf("label %q: %w", label, agrierr.ErrNotFound)
	}
	key := foldKey(label)

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.index[key]
	if !ok {
		return false, fmt.Errorf("label %q: %w", label, agrierr.ErrNotFound)
	}

	idx := -1
	for i, img := range g.Images {
		if img.ID == imageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, fmt.Errorf("label %q image %q: %w", label, imageID, agrierr.ErrNotFound)
	}

	g.Images = append(g.Images[:idx:idx], g.Images[idx+1:]...)
	if len(g.Images) == 0 {
		s.removeLocked(key)
		return true, nil
	}
	return false, nil
}

// Len returns the number of labels.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// IsEmpty reports whether the set has no labels.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// ImageCount returns the total number of example images across labels.
func (s *Set) ImageCount() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.groups {
		n += len(g.Images)
	}
	return n
}

// Labels returns the labels in insertion order.
func (s *Set) Labels() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make([]string, len(s.groups))
	for i, g := range s.groups {
		labels[i] = g.Label
	}
	return labels
}

// Images returns a copy of the images stored under label.
func (s *Set) Images(label string) ([]produce.Image, bool) {
	if s == nil {
		return nil, false
	}
	key := foldKey(label)

	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return append([]produce.Image(nil), g.Images...), true
}

// Groups returns a snapshot of all groups in insertion order.
func (s *Set) Groups() []Group {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = Group{Label: g.Label, Images: append([]produce.Image(nil), g.Images...)}
	}
	return out
}
