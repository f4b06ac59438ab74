package tomo

import "fmt"

// Config is a map of keyword to arbitrary data to specify configurations via keyword.
type Config map[string]interface{}

// GetString returns a string setting, its presence, and an error if the
// setting exists but is not a string.
func (c Config) GetString(key string) (value string, found bool, err error) {
	v, found := c[key]
	if !found {
		return
	}
	value, ok := v.(string)
	if !ok {
		err = fmt.Errorf("%q setting must be a string (%v)", key, v)
	}
	return
}

// GetBool returns a bool setting, its presence, and an error if the
// setting exists but is not a bool.
func (c Config) GetBool(key string) (value bool, found bool, err error) {
	v, found := c[key]
	if !found {
		return
	}
	value, ok := v.(bool)
	if !ok {
		err = fmt.Errorf("%q setting must be a bool (%v)", key, v)
	}
	return
}

// StoreConfig is a store-specific configuration where each store
// implementation defines the types of parameters it accepts.
type StoreConfig struct {
	Config

	// Engine is a simple name describing the engine, e.g., "filestore".
	Engine string
}
