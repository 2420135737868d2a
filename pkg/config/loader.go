package config

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/paths"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// Document is the declarative content of the root configuration file:
// the tracked files, variables, and hooks, each stamped with its origin
// path and with every path cleaned to absolute form.
type Document struct {
	Files     types.TrackedFileList
	Variables []types.Variable
	Hooks     []types.HookDefinition

	// Root is the cleaned path of the root configuration file
	Root string
}

// Decode-side structs. They exist so optional booleans can distinguish
// "unset" from "false" and so types stays free of serialization tags.
type fileEntry struct {
	Source              string   `toml:"file"`
	Destination         string   `toml:"destination"`
	SkipIfSame          *bool    `toml:"skip_if_same"`
	PreHooks            []string `toml:"pre_hook"`
	PostHooks           []string `toml:"post_hook"`
	ContinueOnHookError bool     `toml:"continue_on_hook_error"`
}

type varEntry struct {
	Name  string `toml:"name"`
	Kind  string `toml:"type"`
	Value string `toml:"value"`
}

type hookEntry struct {
	Command         string `toml:"command"`
	Stage           string `toml:"stage"`
	ContinueOnError bool   `toml:"continue_on_error"`
}

type rootDocument struct {
	Files []fileEntry `toml:"file"`
	Vars  []varEntry  `toml:"var"`
	Hooks []hookEntry `toml:"hook"`
}

// Load reads the root configuration file, layers its [config] section
// over the embedded defaults, and decodes the file/var/hook arrays.
// The returned Config is complete and validated; treat it as frozen.
func Load(rootPath string) (*Config, *Document, error) {
	clean, err := paths.Clean(rootPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot resolve config path %s", rootPath)
	}

	raw, err := os.ReadFile(clean)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read config file %s", clean)
	}

	cfg, err := loadSettings(clean)
	if err != nil {
		return nil, nil, err
	}

	doc, err := decodeDocument(raw, clean, cfg)
	if err != nil {
		return nil, nil, err
	}

	// Resolve the metadata dir once, against the root config directory,
	// so every component sees the same absolute location.
	metadataDir, err := paths.CleanRelativeTo(filepath.Dir(clean), cfg.Apply.MetadataDir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot resolve metadata dir %s", cfg.Apply.MetadataDir)
	}
	cfg.Apply.MetadataDir = metadataDir

	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrConfigInvalid, "in config file %s", clean)
	}

	return cfg, doc, nil
}

// loadSettings layers the root file's [config] tree over the embedded
// defaults using koanf.
func loadSettings(rootPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load embedded defaults")
	}

	fk := koanf.New(".")
	if err := fk.Load(file.Provider(rootPath), toml.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", rootPath)
	}

	if err := k.Merge(fk.Cut("config")); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to merge config file %s", rootPath)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid config section in %s", rootPath)
	}

	return &cfg, nil
}

func decodeDocument(raw []byte, origin string, cfg *Config) (*Document, error) {
	var root rootDocument
	if err := gotoml.Unmarshal(raw, &root); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", origin)
	}

	dir := filepath.Dir(origin)
	doc := &Document{Root: origin}

	for _, entry := range root.Files {
		source, err := paths.CleanRelativeTo(dir, entry.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "bad file path %s in %s", entry.Source, origin)
		}
		dest, err := paths.CleanRelativeTo(dir, entry.Destination)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "bad destination path %s in %s", entry.Destination, origin)
		}

		skipIfSame := cfg.Apply.SkipSameContent
		if entry.SkipIfSame != nil {
			skipIfSame = *entry.SkipIfSame
		}

		doc.Files = append(doc.Files, types.TrackedFile{
			Source:              source,
			Destination:         dest,
			Origin:              origin,
			SkipIfSame:          skipIfSame,
			PreHooks:            entry.PreHooks,
			PostHooks:           entry.PostHooks,
			ContinueOnHookError: entry.ContinueOnHookError,
		})
	}

	for _, entry := range root.Vars {
		if err := validateVariableName(entry.Name); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "in config file %s", origin)
		}

		kind := types.VariableKind(entry.Kind)
		if entry.Kind == "" {
			kind = types.VariableLiteral
		}
		switch kind {
		case types.VariableLiteral, types.VariableCommand, types.VariableEnvironment:
		default:
			return nil, errors.Newf(errors.ErrConfigInvalid,
				"unknown variable type %q for variable %s in %s", entry.Kind, entry.Name, origin)
		}

		doc.Variables = append(doc.Variables, types.Variable{
			Name:   entry.Name,
			Kind:   kind,
			Value:  entry.Value,
			Origin: origin,
		})
	}

	for _, entry := range root.Hooks {
		doc.Hooks = append(doc.Hooks, types.HookDefinition{
			Command:         entry.Command,
			Stage:           entry.Stage,
			ContinueOnError: entry.ContinueOnError,
			Origin:          origin,
		})
	}

	return doc, nil
}

func validateVariableName(name string) error {
	if name == "" {
		return errors.New(errors.ErrConfigInvalid, "variable name cannot be empty")
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return errors.Newf(errors.ErrConfigInvalid, "variable name %q cannot contain whitespace", name)
	}
	return nil
}
