package config

import (
	_ "embed"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/Nazg-Gul/fm/errors"
)

//go:embed schema.cue
var schemaSource []byte

// Load reads and validates the configuration file at path.
//
// A file that cannot be read keeps its I/O error code. Anything wrong with
// the content returns CodeInvalidArgument.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.TranslateOp(err, "read config", path)
	}
	return Parse(data, path)
}

// Parse validates YAML source and decodes it. filename is used in error
// messages only.
func Parse(data []byte, filename string) (*Config, error) {
	if filename == "" {
		filename = "<input>"
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidArgument, "invalid YAML",
			makeContext("file", filename))
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if _, ok := doc.(map[string]interface{}); !ok {
		return nil, errors.WithContext(
			errors.New(errors.CodeInvalidArgument, "configuration must be a mapping"), "file", filename)
	}

	cueCtx := cuecontext.New()
	schema, err := compileSchema(cueCtx)
	if err != nil {
		return nil, err
	}

	value := cueCtx.Encode(doc)
	if err := validate(schema, value); err != nil {
		return nil, errors.WithContext(err, "file", filename)
	}

	cfg := &Config{}
	if err := decode(schema.Unify(value), cfg); err != nil {
		return nil, errors.WithContext(err, "file", filename)
	}
	return cfg, nil
}

// compileSchema returns the closed #Config definition.
func compileSchema(cueCtx *cue.Context) (cue.Value, error) {
	v := cueCtx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, errors.Wrap(err, errors.CodeInternal, "embedded schema does not compile")
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

func decode(value cue.Value, cfg *Config) error {
	if err := value.Decode(cfg); err != nil {
		return errors.Wrap(err, errors.CodeInvalidArgument, "failed to decode configuration")
	}
	return nil
}
