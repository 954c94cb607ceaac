package directory

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/verify"
)

//go:embed seed.yaml
var seedData []byte

var (
	seedOnce    sync.Once
	seedEntries map[string]verify.Address
	seedErr     error
)

type seedEntry struct {
	Street     string `yaml:"street"`
	Complement string `yaml:"complement"`
	District   string `yaml:"district"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
}

// DefaultEntries returns the built-in sample addresses.
func DefaultEntries() (map[string]verify.Address, error) {
	seedOnce.Do(func() {
		seedEntries, seedErr = ParseEntries(seedData)
	})
	if seedErr != nil {
		return nil, seedErr
	}
	out := make(map[string]verify.Address, len(seedEntries))
	for code, addr := range seedEntries {
		out[code] = addr
	}
	return out, nil
}

// ParseEntries reads a YAML document keyed by postal code.
func ParseEntries(data []byte) (map[string]verify.Address, error) {
	var raw map[string]seedEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("directory: parse entries: %w", err)
	}
	out := make(map[string]verify.Address, len(raw))
	for code, entry := range raw {
		digits := mask.Digits(code)
		if len(digits) != mask.PostalCodeDigits {
			return nil, fmt.Errorf("directory: entry %q is not an eight digit postal code", code)
		}
		out[digits] = verify.Address{
			PostalCode: digits,
			Street:     entry.Street,
			Complement: entry.Complement,
			District:   entry.District,
			City:       entry.City,
			State:      entry.State,
		}
	}
	return out, nil
}
