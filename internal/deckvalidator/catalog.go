package deckvalidator

import (
	"gopkg.in/yaml.v3"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// FormatRules is one format's deckbuilding rules.
type FormatRules struct {
	Name                string `yaml:"name"`
	MinMainboard        int    `yaml:"min_mainboard"`
	MaxMainboard        int    `yaml:"max_mainboard"` // 0 means unbounded
	CopiesPerCard       int    `yaml:"copies_per_card"`
	RestrictedCopies    int    `yaml:"restricted_copies"` // 0 means format has no restricted list
	Singleton           bool   `yaml:"singleton"`
	CommanderRequired   bool   `yaml:"commander_required"`
	ColorIdentityChecks bool   `yaml:"color_identity_checks"`
	MaxSideboard        int    `yaml:"max_sideboard"` // -1 means unbounded
}

// defaultCatalogYAML is the built-in format catalog. A deployment may
// override it with its own YAML file via LoadCatalog.
const defaultCatalogYAML = `
- name: standard
  min_mainboard: 60
  max_mainboard: 0
  copies_per_card: 4
  restricted_copies: 0
  singleton: false
  commander_required: false
  color_identity_checks: false
  max_sideboard: 15
- name: modern
  min_mainboard: 60
  max_mainboard: 0
  copies_per_card: 4
  restricted_copies: 0
  singleton: false
  commander_required: false
  color_identity_checks: false
  max_sideboard: 15
- name: pioneer
  min_mainboard: 60
  max_mainboard: 0
  copies_per_card: 4
  restricted_copies: 0
  singleton: false
  commander_required: false
  color_identity_checks: false
  max_sideboard: 15
- name: legacy
  min_mainboard: 60
  max_mainboard: 0
  copies_per_card: 4
  restricted_copies: 0
  singleton: false
  commander_required: false
  color_identity_checks: false
  max_sideboard: 15
- name: pauper
  min_mainboard: 60
  max_mainboard: 0
  copies_per_card: 4
  restricted_copies: 0
  singleton: false
  commander_required: false
  color_identity_checks: false
  max_sideboard: 15
- name: vintage
  min_mainboard: 60
  max_mainboard: 0
  copies_per_card: 4
  restricted_copies: 1
  singleton: false
  commander_required: false
  color_identity_checks: false
  max_sideboard: 15
- name: commander
  min_mainboard: 100
  max_mainboard: 100
  copies_per_card: 1
  restricted_copies: 0
  singleton: true
  commander_required: true
  color_identity_checks: true
  max_sideboard: 0
- name: brawl
  min_mainboard: 60
  max_mainboard: 60
  copies_per_card: 1
  restricted_copies: 0
  singleton: true
  commander_required: true
  color_identity_checks: true
  max_sideboard: 0
`

// Catalog maps format name to its rules.
type Catalog map[string]FormatRules

// DefaultCatalog parses the built-in format catalog.
func DefaultCatalog() (Catalog, error) {
	return parseCatalog([]byte(defaultCatalogYAML))
}

// LoadCatalog parses a format catalog from YAML bytes, for deployments
// that want to override the built-in rule table (e.g. to track a banned
// list update) without a code change.
func LoadCatalog(data []byte) (Catalog, error) {
	return parseCatalog(data)
}

func parseCatalog(data []byte) (Catalog, error) {
	var rules []FormatRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, domain.NewError(domain.KindInvalidQuery, "load_format_catalog", "malformed format catalog", err)
	}
	catalog := make(Catalog, len(rules))
	for _, r := range rules {
		catalog[r.Name] = r
	}
	return catalog, nil
}
