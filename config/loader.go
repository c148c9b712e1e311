package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPointer is the section read when WithPointer is not given.
const DefaultPointer = "jam"

// DefaultEnvPrefix prefixes every override variable.
const DefaultEnvPrefix = "JAM_"

var envPattern = regexp.MustCompile(`\$\{([^}{:]+)(:-([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

type loader struct {
	pointer   string
	prefix    string
	dotenv    []string
	skipDotenv   bool
	overrides bool
	environ   map[string]string
}

// Option configures Load and Decode.
type Option func(*loader)

// WithPointer selects a dot-separated section of the document. When the
// section is absent the whole document is decoded.
func WithPointer(pointer string) Option {
	return func(l *loader) { l.pointer = pointer }
}

// WithEnvPrefix replaces the JAM_ override prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.prefix = prefix }
}

// WithDotenv loads the given files instead of ./.env. Missing files are an error.
func WithDotenv(files ...string) Option {
	return func(l *loader) { l.dotenv = files }
}

// WithoutDotenv disables .env loading.
func WithoutDotenv() Option {
	return func(l *loader) { l.skipDotenv = true }
}

// WithoutOverrides disables env-tag overrides after decoding.
func WithoutOverrides() Option {
	return func(l *loader) { l.overrides = false }
}

// WithEnvironment replaces the process environment for substitution and
// overrides. Dotenv files are not loaded when it is set.
func WithEnvironment(environ map[string]string) Option {
	return func(l *loader) {
		l.environ = environ
		l.skipDotenv = true
	}
}

func newLoader(opts []Option) *loader {
	l := &loader{pointer: DefaultPointer, prefix: DefaultEnvPrefix, overrides: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *loader) lookup(key string) (string, bool) {
	if l.environ != nil {
		v, ok := l.environ[key]
		return v, ok
	}
	return os.LookupEnv(key)
}

// Load reads path and decodes the selected section into out.
func Load(path string, out any, opts ...Option) error {
	l := newLoader(opts)
	if err := l.loadDotenv(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return err
	}
	return l.decode(data, out)
}

// Decode is Load for in-memory YAML or JSON documents. Dotenv files are not read.
func Decode(data []byte, out any, opts ...Option) error {
	l := newLoader(opts)
	return l.decode(data, out)
}

func (l *loader) loadDotenv() error {
	if l.skipDotenv {
		return nil
	}
	if len(l.dotenv) > 0 {
		if err := godotenv.Load(l.dotenv...); err != nil {
			return fmt.Errorf("load dotenv: %w", err)
		}
		return nil
	}
	// ./.env is optional.
	_ = godotenv.Load()
	return nil
}

func (l *loader) decode(data []byte, out any) error {
	if out == nil || reflect.ValueOf(out).Kind() != reflect.Pointer || reflect.ValueOf(out).IsNil() {
		return ErrNilPointer
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if doc.Kind == 0 {
		return l.override(out)
	}
	if err := l.expand(&doc); err != nil {
		return err
	}
	section := l.section(&doc)
	if err := section.Decode(out); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return l.override(out)
}

func (l *loader) override(out any) error {
	if !l.overrides || reflect.ValueOf(out).Elem().Kind() != reflect.Struct {
		return nil
	}
	opts := env.Options{Prefix: l.prefix}
	if l.environ != nil {
		opts.Environment = l.environ
	}
	if err := env.ParseWithOptions(out, opts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// section walks the pointer through mapping keys.
func (l *loader) section(doc *yaml.Node) *yaml.Node {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if l.pointer == "" {
		return root
	}
	node := root
	for _, part := range strings.Split(l.pointer, ".") {
		next := mappingValue(node, part)
		if next == nil {
			return root
		}
		node = next
	}
	return node
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// expand substitutes environment references in every string scalar. Plain
// scalars lose their tag so "${PORT}" can decode into an int.
func (l *loader) expand(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() != "!!str" || !envPattern.MatchString(node.Value) {
			return nil
		}
		v, err := Expand(node.Value, l.lookup)
		if err != nil {
			return err
		}
		node.Value = v
		if node.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			node.Tag = ""
		}
	case yaml.DocumentNode, yaml.SequenceNode, yaml.MappingNode:
		for i, child := range node.Content {
			// Mapping keys are never expanded.
			if node.Kind == yaml.MappingNode && i%2 == 0 {
				continue
			}
			if err := l.expand(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Expand replaces ${VAR}, ${VAR:-default} and $VAR in s using lookup.
func Expand(s string, lookup func(string) (string, bool)) (string, error) {
	var missing error
	out := envPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := envPattern.FindStringSubmatch(m)
		name, hasDefault, def := sub[1], sub[2] != "", sub[3]
		if name == "" {
			name = sub[4]
		}
		if v, ok := lookup(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		if missing == nil {
			missing = fmt.Errorf("%w: %s", ErrMissingEnv, name)
		}
		return m
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}
