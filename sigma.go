package posescore

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// SigmaTable holds the per keypoint localization constants of a skeleton
// definition.  Smaller sigmas score a joint more strictly.  A SigmaTable is
// immutable once created.
type SigmaTable struct {
	name   string
	sigmas []float64
}

// NewSigmaTable validates and returns a sigma table.  Every sigma must be a
// finite positive number and the table must not be empty.
func NewSigmaTable(name string, sigmas []float64) (SigmaTable, error) {

	if len(sigmas) == 0 {
		return SigmaTable{}, fmt.Errorf("%w: %s has no entries", ErrInvalidSigmas, name)
	}

	for i, s := range sigmas {
		if !(s > 0) || math.IsInf(s, 0) {
			return SigmaTable{}, fmt.Errorf("%w: %s sigma %d is %v, must be positive",
				ErrInvalidSigmas, name, i, s)
		}
	}

	cp := make([]float64, len(sigmas))
	copy(cp, sigmas)

	return SigmaTable{name: name, sigmas: cp}, nil
}

// Name returns the name of the skeleton definition
func (t SigmaTable) Name() string {
	return t.name
}

// Len returns the number of keypoints the table covers
func (t SigmaTable) Len() int {
	return len(t.sigmas)
}

// At returns the sigma for keypoint i
func (t SigmaTable) At(i int) float64 {
	return t.sigmas[i]
}

// Values returns a copy of the sigmas
func (t SigmaTable) Values() []float64 {
	cp := make([]float64, len(t.sigmas))
	copy(cp, t.sigmas)
	return cp
}

// Validate checks a table that may have been created as a zero value rather
// than through NewSigmaTable
func (t SigmaTable) Validate() error {
	_, err := NewSigmaTable(t.name, t.sigmas)
	return err
}

var (
	// sigmaPresets are the known skeleton definitions.  coco17 carries the
	// per joint constants used by the pose evaluation scripts this tool
	// reproduces, cocoapi17 the values used by pycocotools which are the same
	// constants divided by ten.
	sigmaPresets = map[string][]float64{
		"coco17": {0.26, 0.25, 0.25, 0.35, 0.35, 0.79, 0.79, 0.72, 0.72,
			0.62, 0.62, 1.07, 1.07, 0.87, 0.87, 0.89, 0.89},
		"cocoapi17": {0.026, 0.025, 0.025, 0.035, 0.035, 0.079, 0.079, 0.072, 0.072,
			0.062, 0.062, 0.107, 0.107, 0.087, 0.087, 0.089, 0.089},
	}

	// DefaultSigmaPreset is the preset used when none is named
	DefaultSigmaPreset = "coco17"
)

// SigmaPreset returns the sigma table for a named skeleton definition
func SigmaPreset(name string) (SigmaTable, error) {

	sigmas, ok := sigmaPresets[name]

	if !ok {
		return SigmaTable{}, fmt.Errorf("%w: unknown preset %q, available %s",
			ErrInvalidSigmas, name, strings.Join(SigmaPresetNames(), ", "))
	}

	return NewSigmaTable(name, sigmas)
}

// SigmaPresetNames returns the sorted names of the available presets
func SigmaPresetNames() []string {

	names := make([]string, 0, len(sigmaPresets))

	for name := range sigmaPresets {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// COCOSigmas returns the coco17 preset
func COCOSigmas() SigmaTable {
	t, _ := SigmaPreset("coco17")
	return t
}

// LoadSigmas reads a sigma table from the given text file.  It should contain
// one sigma per line in keypoint order.  Blank lines and lines starting with
// # are ignored.
func LoadSigmas(file string) (SigmaTable, error) {

	f, err := os.Open(file)

	if err != nil {
		return SigmaTable{}, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var sigmas []float64
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s, err := strconv.ParseFloat(line, 64)

		if err != nil {
			return SigmaTable{}, fmt.Errorf("%w: %s line %d: %v",
				ErrInvalidSigmas, file, lineNo, err)
		}

		sigmas = append(sigmas, s)
	}

	if err := scanner.Err(); err != nil {
		return SigmaTable{}, fmt.Errorf("error reading file: %w", err)
	}

	return NewSigmaTable(file, sigmas)
}
