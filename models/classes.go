// Package models - Class label sets for detection models.
package models

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrResourceLoad is returned when model resources such as the class label
// file are missing or malformed.
var ErrResourceLoad = errors.New("resource load failed")

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet is the ordered list of labels a model predicts. The position
// of a label is its class index.
type OutputClassSet struct {
	// Classes that are supported and mappable.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a class set from labels in index order.
func NewOutputClassSet(labels []string) *OutputClassSet {
	s := &OutputClassSet{
		Classes:   make([]OutputClass, len(labels)),
		nameToIdx: make(map[string]int, len(labels)),
	}
	for i, name := range labels {
		s.Classes[i] = OutputClass{Index: i, Name: name}
		if _, dup := s.nameToIdx[name]; !dup {
			s.nameToIdx[name] = i
		}
	}
	return s
}

// Len returns the number of classes.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Name returns the label for idx, or "class_<idx>" when idx is out of range.
func (s *OutputClassSet) Name(idx int) string {
	if idx < 0 || idx >= len(s.Classes) {
		return fmt.Sprintf("class_%d", idx)
	}
	return s.Classes[idx].Name
}

// Index returns the class index for a label.
func (s *OutputClassSet) Index(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found", name)
	}
	return idx, nil
}

// Labels returns the labels in index order.
func (s *OutputClassSet) Labels() []string {
	out := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		out[i] = c.Name
	}
	return out
}

// LoadClassLabels reads a newline-delimited label file, one label per line.
// Surrounding whitespace (including a CR from CRLF files) is trimmed and line
// order defines the class index.
//
// Arguments:
//   - path: Path to the label file, e.g. coco.names.
//
// Returns:
//   - []string: The labels in class index order.
//   - error: ErrResourceLoad wrapped with the cause.
func LoadClassLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceLoad, "class labels: %v", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrResourceLoad, "class labels %s: %v", path, err)
	}
	if len(labels) == 0 {
		return nil, errors.Wrapf(ErrResourceLoad, "class labels %s: file is empty", path)
	}
	return labels, nil
}
