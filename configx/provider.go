// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/ory/jsonschema/v3"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

const (
	Delimiter        = "."
	DefaultEnvPrefix = "BULKX_"
)

// Provider is a koanf instance loaded, in increasing order of precedence, from the schema defaults,
// the base values, the config files, the environment, the command line flags and the forced values.
type Provider struct {
	*koanf.Koanf

	schema []byte
	keys   map[string]schemaKey

	files             []string
	flags             *pflag.FlagSet
	envPrefix         string
	forcedValues      map[string]interface{}
	baseValues        map[string]interface{}
	l                 *logrusx.Logger
	skipValidation    bool
	disableEnvLoading bool
	onValidationError func(k *koanf.Koanf, err error)
}

func New(ctx context.Context, schema []byte, modifiers ...OptionModifier) (*Provider, error) {
	p := &Provider{
		schema:            schema,
		keys:              map[string]schemaKey{},
		envPrefix:         DefaultEnvPrefix,
		forcedValues:      map[string]interface{}{},
		baseValues:        map[string]interface{}{},
		l:                 logrusx.NewNoop(),
		onValidationError: func(*koanf.Koanf, error) {},
	}
	for _, m := range modifiers {
		m(p)
	}
	for _, key := range schemaKeys(schema) {
		p.keys[key.Path] = key
	}

	k, err := p.newKoanf(ctx)
	if err != nil {
		return nil, err
	}
	p.Koanf = k

	return p, nil
}

func (p *Provider) newKoanf(ctx context.Context) (*koanf.Koanf, error) {
	k := koanf.New(Delimiter)

	defaults := map[string]interface{}{}
	for path, key := range p.keys {
		if key.Default.Exists() {
			defaults[path] = key.Default.Value()
		}
	}
	if err := k.Load(confmap.Provider(defaults, Delimiter), nil); err != nil {
		return nil, errorx.InternalErrorf("unable to load config defaults: %v", err).WithCause(err)
	}

	if err := k.Load(confmap.Provider(p.baseValues, Delimiter), nil); err != nil {
		return nil, errorx.InternalErrorf("unable to load base config values: %v", err).WithCause(err)
	}

	for _, f := range p.files {
		parser, err := parserFor(f)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(f), parser); err != nil {
			return nil, errorx.InvalidArgumentErrorf("unable to load config file %s: %v", f, err).WithCause(err)
		}
		p.l.WithField("file", f).Debugf("loaded configuration file")
	}

	if !p.disableEnvLoading {
		var coerceErr error
		provider := env.ProviderWithValue(p.envPrefix, Delimiter, func(name string, value string) (string, interface{}) {
			key, ok := p.keyForEnv(name)
			if !ok {
				return "", nil
			}
			v, err := coerce(key, value)
			if err != nil {
				coerceErr = errors.Join(coerceErr, errorx.InvalidArgumentErrorf("environment variable %s: %v", name, err))
				return "", nil
			}
			return key.Path, v
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, errorx.InternalErrorf("unable to load environment: %v", err).WithCause(err)
		}
		if coerceErr != nil {
			return nil, coerceErr
		}
	}

	if p.flags != nil {
		var coerceErr error
		provider := posflag.ProviderWithFlag(p.flags, Delimiter, k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := p.keyForFlag(f.Name)
			if !ok {
				return "", nil
			}
			var raw interface{} = f.Value.String()
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				raw = sv.GetSlice()
			}
			v, err := coerce(key, raw)
			if err != nil {
				coerceErr = errors.Join(coerceErr, errorx.InvalidArgumentErrorf("flag --%s: %v", f.Name, err))
				return "", nil
			}
			return key.Path, v
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, errorx.InternalErrorf("unable to load flags: %v", err).WithCause(err)
		}
		if coerceErr != nil {
			return nil, coerceErr
		}
	}

	if err := k.Load(confmap.Provider(p.forcedValues, Delimiter), nil); err != nil {
		return nil, errorx.InternalErrorf("unable to load forced config values: %v", err).WithCause(err)
	}

	if !p.skipValidation {
		if err := p.validate(ctx, k); err != nil {
			p.onValidationError(k, err)
			return nil, err
		}
	}

	return k, nil
}

func (p *Provider) validate(ctx context.Context, k *koanf.Koanf) error {
	s, err := compileSchema(ctx, p.schema)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return errorx.InternalErrorf("unable to encode configuration: %v", err).WithCause(err)
	}

	if err := s.Validate(bytes.NewReader(raw)); err != nil {
		return errorx.InvalidArgumentErrorf("invalid configuration: %v", err).WithCause(err)
	}

	return nil
}

func (p *Provider) keyForEnv(name string) (schemaKey, bool) {
	for path, key := range p.keys {
		if EnvName(p.envPrefix, path) == name {
			return key, true
		}
	}
	return schemaKey{}, false
}

func (p *Provider) keyForFlag(name string) (schemaKey, bool) {
	for path, key := range p.keys {
		if FlagName(path) == name {
			return key, true
		}
	}
	return schemaKey{}, false
}

// SchemaKeys returns the leaf key paths declared by the schema.
func (p *Provider) SchemaKeys() []string {
	out := make([]string, 0, len(p.keys))
	for _, key := range schemaKeys(p.schema) {
		out = append(out, key.Path)
	}
	return out
}

func (p *Provider) printHumanReadableValidationErrors(k *koanf.Koanf, w io.Writer, err error) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		_, _ = fmt.Fprintf(w, "The configuration is invalid: %v\n", err)
		return
	}

	_, _ = fmt.Fprintln(w, "The configuration contains values or keys which are invalid:")
	var report func(ve *jsonschema.ValidationError)
	report = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) == 0 {
			path := strings.ReplaceAll(strings.TrimPrefix(ve.InstancePtr, "#/"), "/", Delimiter)
			_, _ = fmt.Fprintf(w, "%s: %v\n", path, k.Get(path))
			_, _ = fmt.Fprintf(w, "%s^-- %s\n\n", strings.Repeat(" ", len(path)+2), ve.Message)
			return
		}
		for _, cause := range ve.Causes {
			report(cause)
		}
	}
	report(ve)
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return kjson.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, errorx.InvalidArgumentErrorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// coerce converts a raw env or flag value to the type the schema declares for the key.
func coerce(key schemaKey, raw interface{}) (interface{}, error) {
	switch key.Type {
	case "integer":
		return cast.ToInt64E(raw)
	case "number":
		return cast.ToFloat64E(raw)
	case "boolean":
		return cast.ToBoolE(raw)
	case "array":
		if s, ok := raw.(string); ok {
			if s == "" {
				return []string{}, nil
			}
			return strings.Split(s, ","), nil
		}
		return cast.ToStringSliceE(raw)
	default:
		return cast.ToStringE(raw)
	}
}
