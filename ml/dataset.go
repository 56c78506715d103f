package ml

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strconv"
)

//go:embed data/iris.csv
var irisCSV []byte

// Dataset is a labelled feature matrix.
type Dataset struct {
	X            [][]float64
	Y            []int
	FeatureNames []string
	ClassNames   []string
}

// IrisClassNames are the categories of the reference dataset, in label order.
func IrisClassNames() []string {
	return []string{"setosa", "versicolor", "virginica"}
}

// DefaultFeatureNames is used when an artifact carries no feature names.
func DefaultFeatureNames() []string {
	return []string{"f1", "f2", "f3", "f4"}
}

// LoadIris parses the embedded reference dataset.
func LoadIris() (*Dataset, error) {
	records, err := csv.NewReader(bytes.NewReader(irisCSV)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse iris data: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("iris data has no rows")
	}

	header := records[0]
	nFeatures := len(header) - 1
	ds := &Dataset{
		X:            make([][]float64, 0, len(records)-1),
		Y:            make([]int, 0, len(records)-1),
		FeatureNames: append([]string(nil), header[:nFeatures]...),
		ClassNames:   IrisClassNames(),
	}
	for line, record := range records[1:] {
		row := make([]float64, nFeatures)
		for j := 0; j < nFeatures; j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("iris row %d: %w", line+1, err)
			}
			row[j] = v
		}
		label, err := strconv.Atoi(record[nFeatures])
		if err != nil || label < 0 || label >= len(ds.ClassNames) {
			return nil, fmt.Errorf("iris row %d: bad label %q", line+1, record[nFeatures])
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, label)
	}
	return ds, nil
}
