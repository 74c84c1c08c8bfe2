package util

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/uvilor/dbm-merge/internal/normalize"
)

// normFile is the YAML shape of a normalize-options file:
//
//	name_case:
//	  strategy: lower
//	  ignore: [LegacyTable]
//	normalize_defaults: true
//	type_map:
//	  citext: varchar
type normFile struct {
	NameCase *struct {
		Strategy string   `yaml:"strategy"`
		Ignore   []string `yaml:"ignore"`
	} `yaml:"name_case"`
	NormalizeDefaults bool              `yaml:"normalize_defaults"`
	TypeMap           map[string]string `yaml:"type_map"`
}

// LoadNormOptions reads a normalize-options YAML file.
func LoadNormOptions(path string) (normalize.Options, error) {
	var opts normalize.Options

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read normalize options: %w", err)
	}
	var file normFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return opts, fmt.Errorf("parse normalize options %s: %w", path, err)
	}

	if file.NameCase != nil {
		opts.NameCase = &normalize.NameCase{
			Strategy: normalize.CaseStrategy(file.NameCase.Strategy),
			Ignore:   file.NameCase.Ignore,
		}
	}
	opts.NormalizeDefaults = file.NormalizeDefaults
	opts.TypeMap = file.TypeMap
	return opts, nil
}
