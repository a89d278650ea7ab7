// Package config loads and validates the declarative multi-database
// configuration. Loading is a pure transformation from raw YAML plus a flat
// credential mapping into an ordered list of validated declarations; it never
// touches the network, so it doubles as a dry-validate mode.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
)

// Database is one validated backend declaration from the configuration file.
// Params holds the type-specific connection parameters with all ${NAME}
// placeholders already resolved. Immutable after load.
type Database struct {
	ID     string
	Type   string
	Params map[string]string
}

// TypeSet exposes the known backend types and their required connection
// parameters. The connector registry implements it; tests supply fixed maps.
type TypeSet interface {
	Known(dbType string) bool
	RequiredParams(dbType string) []string
}

// StaticTypes is a map-backed TypeSet for tests and tooling.
type StaticTypes map[string][]string

// Known reports whether dbType has an entry.
func (s StaticTypes) Known(dbType string) bool {
	_, ok := s[dbType]
	return ok
}

// RequiredParams returns the required parameter names for dbType.
func (s StaticTypes) RequiredParams(dbType string) []string {
	return s[dbType]
}

type rawConfig struct {
	Databases []map[string]interface{} `yaml:"databases"`
}

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the configuration file at path and parses it against env.
func Load(path string, env map[string]string, types TypeSet) ([]Database, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeMalformedConfig, "failed to read config file").
			WithDetail("path", path)
	}
	return Parse(data, env, types)
}

// Parse converts raw YAML into an ordered list of validated declarations.
//
// Validation order: structural shape, then per declaration type known,
// placeholder interpolation, required-parameter presence, and finally global
// id uniqueness. The first violation aborts the whole load; no partial result
// is ever returned.
func Parse(raw []byte, env map[string]string, types TypeSet) ([]Database, error) {
	var cfg rawConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeMalformedConfig, "invalid YAML in configuration file")
	}

	databases := make([]Database, 0, len(cfg.Databases))

	for i, entry := range cfg.Databases {
		db, err := parseEntry(i, entry, env, types)
		if err != nil {
			return nil, err
		}
		databases = append(databases, db)
	}

	seen := make(map[string]struct{}, len(databases))
	for _, db := range databases {
		if _, dup := seen[db.ID]; dup {
			return nil, dberrors.Newf(dberrors.ErrorTypeDuplicateID,
				"duplicate database id %q", db.ID).WithDetail("id", db.ID)
		}
		seen[db.ID] = struct{}{}
	}

	return databases, nil
}

func parseEntry(index int, entry map[string]interface{}, env map[string]string, types TypeSet) (Database, error) {
	id := stringValue(entry["id"])
	if id == "" {
		return Database{}, dberrors.Newf(dberrors.ErrorTypeMalformedConfig,
			"database declaration #%d missing 'id' field", index+1)
	}

	dbType := stringValue(entry["type"])
	if dbType == "" {
		return Database{}, dberrors.Newf(dberrors.ErrorTypeMalformedConfig,
			"database %q missing 'type' field", id).WithDetail("id", id)
	}
	if !types.Known(dbType) {
		return Database{}, dberrors.Newf(dberrors.ErrorTypeUnknownType,
			"database %q has unknown type %q", id, dbType).
			WithDetail("id", id).WithDetail("type", dbType)
	}

	params := make(map[string]string, len(entry))
	for key, value := range entry {
		if key == "id" || key == "type" {
			continue
		}
		resolved, err := interpolate(stringValue(value), env)
		if err != nil {
			return Database{}, dberrors.AsError(err).
				WithDetail("id", id).WithDetail("param", key)
		}
		params[key] = resolved
	}

	for _, name := range types.RequiredParams(dbType) {
		if params[name] == "" {
			return Database{}, dberrors.Newf(dberrors.ErrorTypeMissingRequiredParam,
				"%s database %q missing required field %q", dbType, id, name).
				WithDetail("id", id).WithDetail("param", name)
		}
	}

	return Database{ID: id, Type: dbType, Params: params}, nil
}

// interpolate replaces every ${NAME} in value with the corresponding entry in
// env. An unresolvable placeholder is a hard MissingCredential failure; empty
// substitution is never performed.
func interpolate(value string, env map[string]string) (string, error) {
	var missing string
	resolved := placeholderRe.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		v, ok := env[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return v
	})
	if missing != "" {
		return "", dberrors.Newf(dberrors.ErrorTypeMissingCredential,
			"missing credential %q", missing).WithDetail("ref", missing)
	}
	return resolved, nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		// YAML scalars such as port: 5432 arrive as ints
		return fmt.Sprintf("%v", val)
	}
}

// EnvMap converts the process environment into the flat credential mapping
// that Load consumes.
func EnvMap() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
