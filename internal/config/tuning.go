package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"tourplan/internal/recommend"
	"tourplan/internal/tour"
)

// Tuning is the YAML tuning file. Keys left out keep their defaults.
type Tuning struct {
	Tour      tour.Tuning      `yaml:"tour" json:"tour"`
	Recommend recommend.Config `yaml:"recommend" json:"recommend"`
}

func DefaultTuning() Tuning {
	return Tuning{Tour: tour.DefaultTuning(), Recommend: recommend.DefaultConfig()}
}

// LoadTuning reads path over the defaults. An empty path returns the
// defaults.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("open tuning file: %w", err)
	}
	defer f.Close()
	return ReadTuning(f)
}

// ReadTuning decodes YAML over the defaults. Unknown keys are rejected.
func ReadTuning(r io.Reader) (Tuning, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Tuning{}, err
	}
	t := DefaultTuning()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("decode tuning: %w", err)
	}
	return t, nil
}
