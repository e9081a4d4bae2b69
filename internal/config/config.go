// Package config loads a stay description from a YAML file, as an
// alternative to spelling every parameter out on the command line.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/engine"
)

// DefaultProtocol is the protocol version assumed when none is given.
const DefaultProtocol = "2017-10"

// SupportedProtocols lists the accepted protocol version spellings.
var SupportedProtocols = []string{"2017-10", "2018-10", "2020-10"}

// Occupancy describes the inventory occupancy of one room-type code.
// MaxChild is optional; leaving it out means no child occupancy cap.
type Occupancy struct {
	Code     string `yaml:"code"`
	Min      int    `yaml:"min"`
	Std      int    `yaml:"std"`
	Max      int    `yaml:"max"`
	MaxChild *int   `yaml:"max_child"`
}

// Config is one stay description: the rate plans message to test against,
// the stay parameters and the occupancy table.
type Config struct {
	Message  string `yaml:"message"`
	Protocol string `yaml:"protocol"`

	Stay struct {
		Arrival      string `yaml:"arrival"`
		Departure    string `yaml:"departure"`
		Adults       int    `yaml:"adults"`
		ChildrenAges []int  `yaml:"children_ages"`
		BookingDate  string `yaml:"booking_date"`
	} `yaml:"stay"`

	Occupancy []Occupancy `yaml:"occupancy"`

	// Verbosity: 0 result only, 1 adds the matching trace, 2 adds the
	// validation trace as well.
	Verbosity int `yaml:"verbosity"`
}

// Load reads and parses a stay description file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Protocol == "" {
		cfg.Protocol = DefaultProtocol
	}
	if !ProtocolSupported(cfg.Protocol) {
		return nil, fmt.Errorf("parsing %s: unsupported protocol version %q", path, cfg.Protocol)
	}
	return &cfg, nil
}

// ProtocolSupported reports whether the version spelling is accepted.
func ProtocolSupported(v string) bool {
	for _, p := range SupportedProtocols {
		if p == v {
			return true
		}
	}
	return false
}

// JobParams converts the stay description into the engine's input shape.
func (c *Config) JobParams() engine.JobParams {
	p := engine.JobParams{
		Arrival:         c.Stay.Arrival,
		Departure:       c.Stay.Departure,
		Adults:          c.Stay.Adults,
		ChildrenAges:    c.Stay.ChildrenAges,
		BookingDate:     c.Stay.BookingDate,
		ProtocolVersion: c.Protocol,
	}
	for _, occ := range c.Occupancy {
		p.Occupancy = append(p.Occupancy, engine.Occupancy{
			Code:     occ.Code,
			Min:      occ.Min,
			Std:      occ.Std,
			Max:      occ.Max,
			MaxChild: occ.MaxChild,
		})
	}
	return p
}
