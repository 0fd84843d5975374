// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"io"
	"os"

	"github.com/clinia/bulkx/logrusx"
	"github.com/knadh/koanf"
	"github.com/spf13/pflag"
)

type OptionModifier func(p *Provider)

// WithConfigFiles loads the files in order, later files overriding earlier ones.
// The parser is picked from the extension: json, yaml or toml.
func WithConfigFiles(files ...string) OptionModifier {
	return func(p *Provider) {
		p.files = append(p.files, files...)
	}
}

// WithFlags reads the flags registered by RegisterFlags. Only flags changed on the command line override other sources.
func WithFlags(flags *pflag.FlagSet) OptionModifier {
	return func(p *Provider) {
		p.flags = flags
	}
}

func WithLogger(l *logrusx.Logger) OptionModifier {
	return func(p *Provider) {
		p.l = l
	}
}

// WithEnvPrefix sets the prefix of the environment variables, "BULKX_" by default.
func WithEnvPrefix(prefix string) OptionModifier {
	return func(p *Provider) {
		p.envPrefix = prefix
	}
}

func SkipValidation() OptionModifier {
	return func(p *Provider) {
		p.skipValidation = true
	}
}

func DisableEnvLoading() OptionModifier {
	return func(p *Provider) {
		p.disableEnvLoading = true
	}
}

// WithValue forces a value, overriding every other source.
func WithValue(key string, value interface{}) OptionModifier {
	return WithValues(map[string]interface{}{key: value})
}

func WithValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) {
		for key, value := range values {
			p.forcedValues[key] = value
		}
	}
}

// WithBaseValues sets values loaded right after the schema defaults, so any other source overrides them.
func WithBaseValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) {
		for key, value := range values {
			p.baseValues[key] = value
		}
	}
}

func WithStderrValidationReporter() OptionModifier {
	return WithStandardValidationReporter(os.Stderr)
}

// WithStandardValidationReporter prints every invalid key with its value and the reason to w.
func WithStandardValidationReporter(w io.Writer) OptionModifier {
	return func(p *Provider) {
		p.onValidationError = func(k *koanf.Koanf, err error) {
			p.printHumanReadableValidationErrors(k, w, err)
		}
	}
}
