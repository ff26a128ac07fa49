package track

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumFeatures is the dimension of an analysis vector.
const NumFeatures = 20

// FeatureNames lists vector components in storage order. They double as the
// Tracks table column names.
var FeatureNames = [NumFeatures]string{
	"Tempo",
	"Zcr",
	"MeanSpectralCentroid",
	"StdDevSpectralCentroid",
	"MeanSpectralRolloff",
	"StdDevSpectralRolloff",
	"MeanSpectralFlatness",
	"StdDevSpectralFlatness",
	"MeanLoudness",
	"StdDevLoudness",
	"Chroma1",
	"Chroma2",
	"Chroma3",
	"Chroma4",
	"Chroma5",
	"Chroma6",
	"Chroma7",
	"Chroma8",
	"Chroma9",
	"Chroma10",
}

// Vector is the fixed-size feature vector produced by an Analyzer.
type Vector [NumFeatures]float64

// ErrInvalidVector reports a vector holding NaN or infinite components.
var ErrInvalidVector = errors.New("invalid analysis vector")

// Validate rejects vectors that cannot be stored.
func (v Vector) Validate() error {
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidVector, FeatureNames[i], f)
		}
	}
	return nil
}

// String renders the vector as comma separated decimals, the form written to
// file tags.
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParseVector parses the output of Vector.String.
func ParseVector(value string) (Vector, error) {
	var v Vector
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) != NumFeatures {
		return v, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidVector, NumFeatures, len(parts))
	}
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return v, fmt.Errorf("%w: %s: %v", ErrInvalidVector, FeatureNames[i], err)
		}
		v[i] = f
	}
	return v, v.Validate()
}
