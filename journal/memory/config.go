/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package memory

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/acronis/go-dbjournal/journal"
)

// Config holds optional seeds for the live DataSet. Both default to empty.
type Config struct {
	// Tables maps a journal table name to its initial entries.
	Tables map[string][]journal.Entry `mapstructure:"tables" yaml:"tables" json:"tables"`
	// SQL is the initial raw statement history.
	SQL []string `mapstructure:"sql" yaml:"sql" json:"sql"`
}

// ConfigFromMap decodes a generic option bag (e.g. a section of a parsed YAML/JSON document) into Config.
// Unknown keys are rejected. Timestamps are accepted as time.Time values or RFC 3339 strings,
// operations as their "APPLY"/"REVERT" labels.
func ConfigFromMap(options map[string]interface{}) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return Config{}, fmt.Errorf("create config decoder: %w", err)
	}
	if err = decoder.Decode(options); err != nil {
		return Config{}, fmt.Errorf("decode memory journal config: %w", err)
	}
	return cfg, nil
}
