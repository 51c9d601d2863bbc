// Package montage maps channel counts to standard EEG electrode layouts.
package montage

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed montages.yaml
var montagesYAML []byte

// Electrode is one named electrode with its head-frame position in meters.
type Electrode struct {
	Name     string     `yaml:"name"`
	Position [3]float64 `yaml:"position"`
}

// Montage is a named electrode layout applicable to recordings with one of
// its channel counts.
type Montage struct {
	Name          string      `yaml:"name"`
	ChannelCounts []int       `yaml:"channel_counts"`
	Electrodes    []Electrode `yaml:"electrodes"`
}

type catalog struct {
	Montages []Montage `yaml:"montages"`
}

var montages []Montage

func init() {
	var c catalog
	if err := yaml.Unmarshal(montagesYAML, &c); err != nil {
		panic(fmt.Sprintf("montage: parse embedded table: %v", err))
	}
	montages = c.Montages
}

// ForChannelCount returns the montage applicable to a recording with the
// given number of signal channels, or false when none fits.
func ForChannelCount(n int) (*Montage, bool) {
	for i := range montages {
		for _, count := range montages[i].ChannelCounts {
			if count == n {
				return &montages[i], true
			}
		}
	}
	return nil, false
}

// Names lists the available montage names.
func Names() []string {
	names := make([]string, len(montages))
	for i, m := range montages {
		names[i] = m.Name
	}
	return names
}
