// Package dataset loads chest X-ray label files and decodes the referenced
// images into flat normalized feature vectors.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Class labels. Covid is the minority class in every published split.
const (
	LabelNonCovid int32 = 0
	LabelCovid    int32 = 1
)

// Sample is one labeled image reference from a label file.
type Sample struct {
	ImageID string
	Label   int32
}

// Split holds the samples of a label file partitioned by class.
type Split struct {
	NonCovid []Sample
	Covid    []Sample
}

// All returns the split's samples as one slice, non-covid first.
func (s *Split) All() []Sample {
	all := make([]Sample, 0, len(s.NonCovid)+len(s.Covid))
	all = append(all, s.NonCovid...)
	all = append(all, s.Covid...)
	return all
}

// LoadLabelFile parses a whitespace-separated label file. Two layouts are
// accepted per line:
//
//	<filename> <label>
//	<patient-id> <filename> <label> <source>
//
// Labels "covid" and "covid-19" (case-insensitive) map to the covid class;
// everything else (normal, pneumonia, ...) is non-covid.
func LoadLabelFile(path string) (*Split, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %v", err)
	}
	defer file.Close()

	split := &Split{}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		var imageID, label string
		switch len(fields) {
		case 2:
			imageID, label = fields[0], fields[1]
		case 4:
			imageID, label = fields[1], fields[2]
		default:
			return nil, fmt.Errorf("%s:%d: expected 2 or 4 fields, got %d", path, lineNo, len(fields))
		}

		sample := Sample{ImageID: imageID, Label: classFor(label)}
		if sample.Label == LabelCovid {
			split.Covid = append(split.Covid, sample)
		} else {
			split.NonCovid = append(split.NonCovid, sample)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %v", err)
	}

	if len(split.NonCovid)+len(split.Covid) == 0 {
		return nil, fmt.Errorf("label file %s contains no samples", path)
	}
	return split, nil
}

func classFor(label string) int32 {
	switch strings.ToLower(label) {
	case "covid", "covid-19":
		return LabelCovid
	default:
		return LabelNonCovid
	}
}
