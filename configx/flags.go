// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"github.com/spf13/pflag"
)

const ConfigFlagName = "config"

// RegisterConfigFlag adds the --config (-c) flag listing the configuration files to load.
func RegisterConfigFlag(flags *pflag.FlagSet, fallback []string) {
	flags.StringSliceP(ConfigFlagName, "c", fallback, "Config files to load, overwriting in the order specified.")
}

// RegisterFlags adds one flag per leaf of the schema, typed and described after it.
// Flags already registered are left alone.
func RegisterFlags(flags *pflag.FlagSet, schema []byte) {
	for _, key := range schemaKeys(schema) {
		name := FlagName(key.Path)
		if flags.Lookup(name) != nil {
			continue
		}

		switch key.Type {
		case "boolean":
			flags.Bool(name, key.Default.Bool(), key.Description)
		case "integer":
			flags.Int64(name, key.Default.Int(), key.Description)
		case "number":
			flags.Float64(name, key.Default.Float(), key.Description)
		case "array":
			var fallback []string
			for _, v := range key.Default.Array() {
				fallback = append(fallback, v.String())
			}
			flags.StringSlice(name, fallback, key.Description)
		default:
			flags.String(name, key.Default.String(), key.Description)
		}
	}
}
