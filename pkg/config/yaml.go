package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"
)

// ConfigBaseName is the base name of the fastlane configuration file without extension.
const ConfigBaseName = "fastlane"

// ConfigExtension is the file extension for the configuration file without the leading dot.
const ConfigExtension = "yaml"

// ConfigYaml is the filename for the fastlane configuration file.
const ConfigYaml = ConfigBaseName + "." + ConfigExtension

// ErrReadYaml is the error returned when reading the fastlane.yaml file fails.
var ErrReadYaml = fmt.Errorf("reading %s", ConfigYaml)

// ReadYaml reads fastlane.yaml from dir on top of DefaultConfig.
func ReadYaml(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, ConfigYaml))

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w decoding file: %w", ErrReadYaml, err)
	}

	config := DefaultConfig
	config.RPC.CORSAllowedOrigins = nil
	config.Bank.GenesisBalances = nil
	if err := v.Unmarshal(&config, decoderConfig); err != nil {
		return Config{}, fmt.Errorf("%w unmarshaling config: %w", ErrReadYaml, err)
	}
	config.RootDir = dir

	return config, nil
}

// SaveAsYaml writes the configuration to fastlane.yaml in its root directory.
func (c Config) SaveAsYaml() error {
	return WriteYamlConfig(c)
}

// WriteYamlConfig writes the YAML configuration to the fastlane.yaml file.
// Field comments are taken from the `comment` struct tags.
func WriteYamlConfig(config Config) error {
	configPath := filepath.Join(config.RootDir, ConfigYaml)

	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPerm); err != nil {
		return err
	}

	yamlCommentMap := yaml.CommentMap{}

	var processFields func(t reflect.Type, prefix string)
	processFields = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}

			yamlTag := field.Tag.Get("yaml")
			if yamlTag == "" || yamlTag == "-" {
				continue
			}

			fieldPath := yamlTag
			if prefix != "" {
				fieldPath = prefix + "." + fieldPath
			}

			if comment := field.Tag.Get("comment"); comment != "" {
				yamlCommentMap["$."+fieldPath] = []*yaml.Comment{yaml.HeadComment(comment)}
			}

			if field.Type.Kind() == reflect.Struct {
				processFields(field.Type, fieldPath)
			}
		}
	}
	processFields(reflect.TypeOf(Config{}), "")

	data, err := yaml.MarshalWithOptions(config, yaml.WithComment(yamlCommentMap))
	if err != nil {
		return fmt.Errorf("error marshaling YAML data: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("error writing %s file: %w", ConfigYaml, err)
	}

	return nil
}

// EnsureRoot ensures that the root directory exists.
func EnsureRoot(rootDir string) error {
	if rootDir == "" {
		return fmt.Errorf("root directory cannot be empty")
	}

	if err := os.MkdirAll(rootDir, DefaultDirPerm); err != nil {
		return fmt.Errorf("could not create directory %q: %w", rootDir, err)
	}

	return nil
}
