package processing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/systemstart/dcm2bids/pkg/api"
)

// ErrNoDicoms is returned when the input directory holds no DICOM files.
var ErrNoDicoms = errors.New("no DICOM files found")

const (
	dicomPreambleLength = 128
	dicomMagic          = "DICM"
)

// Inventory summarizes the raw DICOM input of a run.
type Inventory struct {
	Files      int // files carrying the DICM magic
	Skipped    int // other files matched by the include patterns
	Unreadable int // DICOM files whose header could not be parsed
	Patients   []string
	Studies    []string
	Series     []string
	Modalities []string
}

// DiscoverDicoms walks root, selecting files with cfg's doublestar
// patterns, and reads the identifying header fields of every DICOM file.
// It returns ErrNoDicoms when nothing under root is a DICOM file.
func DiscoverDicoms(root string, cfg api.InventoryConfig) (*Inventory, error) {
	files, err := collectCandidates(os.DirFS(root), cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("collecting files under %s: %w", root, err)
	}

	inv := &Inventory{}
	seen := newFieldSets()

	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))

		ok, err := hasDicomMagic(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if !ok {
			inv.Skipped++
			continue
		}
		inv.Files++

		ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
		if err != nil {
			slog.Debug("could not parse DICOM header", "path", path, "error", err)
			inv.Unreadable++
			continue
		}
		seen.add(&ds)
	}

	if inv.Files == 0 {
		return inv, fmt.Errorf("%w in %s (%d other files)", ErrNoDicoms, root, inv.Skipped)
	}

	inv.Patients = seen.patients.sorted()
	inv.Studies = seen.studies.sorted()
	inv.Series = seen.series.sorted()
	inv.Modalities = seen.modalities.sorted()
	return inv, nil
}

func collectCandidates(fsys fs.FS, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = []string{api.DefaultInventoryInclude}
	}

	var result []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", pattern, err)
		}
		for _, m := range matches {
			excluded, err := matchesAny(exclude, m)
			if err != nil {
				return nil, err
			}
			if !excluded {
				result = append(result, m)
			}
		}
	}

	slices.Sort(result)
	return slices.Compact(result), nil
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("exclude %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// hasDicomMagic reports whether the file carries the Part 10 preamble
// followed by "DICM".
func hasDicomMagic(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, dicomPreambleLength+len(dicomMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(header[dicomPreambleLength:], []byte(dicomMagic)), nil
}

type stringSet map[string]struct{}

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

type fieldSets struct {
	patients, studies, series, modalities stringSet
}

func newFieldSets() *fieldSets {
	return &fieldSets{
		patients:   stringSet{},
		studies:    stringSet{},
		series:     stringSet{},
		modalities: stringSet{},
	}
}

func (f *fieldSets) add(ds *dicom.Dataset) {
	f.patients.add(firstString(ds, tag.PatientID))
	f.studies.add(firstString(ds, tag.StudyInstanceUID))
	f.series.add(firstString(ds, tag.SeriesInstanceUID))
	f.modalities.add(firstString(ds, tag.Modality))
}

func firstString(ds *dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil || elem.Value.ValueType() != dicom.Strings {
		return ""
	}
	values := dicom.MustGetStrings(elem.Value)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(values[0]), "\x00")
}
