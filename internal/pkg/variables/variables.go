// Package variables maps raw datalogger channel names to normalized variable names.
package variables

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v2"
)

const CR6BiometPermanent string = "cr6-biomet-permanent"

var ErrUnknownStation = errors.New("unknown station")

//go:embed stations.yaml
var stationsYaml []byte

type Dictionary struct {
	Name     string            `yaml:"name"`
	Channels map[string]string `yaml:"channels"`
}

type config struct {
	Stations []Dictionary `yaml:"stations"`
}

var builtin = sync.OnceValues(func() ([]Dictionary, error) {
	return Load(bytes.NewReader(stationsYaml))
})

func Load(r io.Reader) ([]Dictionary, error) {
	c := config{}
	err := yaml.NewDecoder(r).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("could not decode station dictionaries: %w", err)
	}

	for _, d := range c.Stations {
		if d.Name == "" {
			return nil, errors.New("station dictionary without name")
		}
	}

	return c.Stations, nil
}

// Get returns one of the embedded dictionaries.
func Get(name string) (Dictionary, error) {
	dicts, err := builtin()
	if err != nil {
		return Dictionary{}, err
	}

	for _, d := range dicts {
		if d.Name == name {
			return d, nil
		}
	}

	return Dictionary{}, fmt.Errorf("%w: %s", ErrUnknownStation, name)
}

func (d Dictionary) Lookup(channel string) (string, bool) {
	v, ok := d.Channels[channel]
	return v, ok
}
