/*
	Package config loads the catalog configuration: the static and
	overlay store definitions, logging, and the object-definition set.
	The configuration file is TOML; object definitions are additionally
	checked against a JSON schema before the catalog ever opens.

	Example:

		[logging]
		logfile = "tomocat.log"
		max_log_size = 500  # MB
		max_log_age = 30    # days

		[static]
		engine = "filestore"
		path = "/data/published"
		readonly = true

		[overlay]
		engine = "badgerstore"
		path = "/data/annotations"

		[[objects]]
		name = "ribosome"
		is_particle = true
		label = 1
		color = [0, 255, 0, 255]
		radius = 150.0
*/

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tomoverse/tomocat/catalog"
	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// objectsSchema constrains the object-definition set beyond what TOML
// decoding alone can check.
const objectsSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "label"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"is_particle": {"type": "boolean"},
			"label": {"type": "integer", "minimum": 1},
			"color": {
				"type": "array",
				"items": {"type": "integer", "minimum": 0, "maximum": 255},
				"minItems": 4,
				"maxItems": 4
			},
			"emdb_id": {"type": "string"},
			"pdb_id": {"type": "string"},
			"radius": {"type": "number", "minimum": 0},
			"metadata": {"type": "object"}
		},
		"additionalProperties": false
	}
}`

type tomlConfig struct {
	Logging tomo.LogConfig             `toml:"logging"`
	Static  map[string]interface{}     `toml:"static"`
	Overlay map[string]interface{}     `toml:"overlay"`
	Objects []catalog.ObjectDefinition `toml:"objects"`
}

// Config is the loaded, validated catalog configuration.
type Config struct {
	Logging tomo.LogConfig
	Static  *tomo.StoreConfig
	Overlay tomo.StoreConfig
	Objects []catalog.ObjectDefinition
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, tomo.Invalidf("config", "cannot parse %q: %v", path, err)
	}
	return fromTOML(tc)
}

// LoadBytes parses configuration from memory, mainly for tests.
func LoadBytes(data []byte) (*Config, error) {
	var tc tomlConfig
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&tc); err != nil {
		return nil, tomo.Invalidf("config", "cannot parse config: %v", err)
	}
	return fromTOML(tc)
}

func fromTOML(tc tomlConfig) (*Config, error) {
	if tc.Overlay == nil {
		return nil, tomo.Invalidf("overlay", "an [overlay] store is required")
	}
	overlay, err := storeConfig(tc.Overlay)
	if err != nil {
		return nil, err
	}
	c := &Config{Logging: tc.Logging, Overlay: overlay, Objects: tc.Objects}
	if tc.Static != nil {
		static, err := storeConfig(tc.Static)
		if err != nil {
			return nil, err
		}
		c.Static = &static
	}
	if err := validateObjectsSchema(c.Objects); err != nil {
		return nil, err
	}
	if err := catalog.ValidateObjects(c.Objects); err != nil {
		return nil, err
	}
	return c, nil
}

// storeConfig converts a free-form TOML table into a StoreConfig with a
// mandatory engine name.
func storeConfig(settings map[string]interface{}) (tomo.StoreConfig, error) {
	engine, found := settings["engine"]
	if !found {
		return tomo.StoreConfig{}, tomo.Invalidf("engine", "store table needs an engine name")
	}
	name, ok := engine.(string)
	if !ok {
		return tomo.StoreConfig{}, tomo.Invalidf("engine", "engine name must be a string (%v)", engine)
	}
	config := make(tomo.Config, len(settings))
	for k, v := range settings {
		if k != "engine" {
			config[k] = v
		}
	}
	return tomo.StoreConfig{Config: config, Engine: name}, nil
}

// validateObjectsSchema round-trips the decoded definitions through JSON
// and checks them against the embedded schema.
func validateObjectsSchema(objects []catalog.ObjectDefinition) error {
	if objects == nil {
		objects = []catalog.ObjectDefinition{}
	}
	data, err := json.Marshal(objects)
	if err != nil {
		return err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("objects.schema.json", strings.NewReader(objectsSchema)); err != nil {
		return err
	}
	schema, err := compiler.Compile("objects.schema.json")
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return tomo.Invalidf("objects", "schema violation: %v", err)
	}
	return nil
}

// OpenRoot sets up logging, opens the configured backends, and returns
// the catalog root.
func (c *Config) OpenRoot() (*catalog.Root, error) {
	c.Logging.SetLogger()
	var static storage.Backend
	if c.Static != nil {
		var err error
		if static, err = storage.NewBackend(*c.Static); err != nil {
			return nil, fmt.Errorf("cannot open static store: %w", err)
		}
		static = storage.ReadOnlyBackend(static)
	}
	overlay, err := storage.NewBackend(c.Overlay)
	if err != nil {
		if static != nil {
			static.Close()
		}
		return nil, fmt.Errorf("cannot open overlay store: %w", err)
	}
	return catalog.NewRoot(static, overlay, c.Objects)
}
