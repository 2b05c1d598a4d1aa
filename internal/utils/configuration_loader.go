package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationFileNameTemplateConstant     = "%s.%s"
	environmentKeySourceSeparatorConstant     = "."
	environmentKeyTargetSeparatorConstant     = "_"
	environmentListSeparatorConstant          = ","
	embeddedConfigurationReadTemplateConstant = "unable to read embedded configuration: %w"
	configurationFileReadTemplateConstant     = "unable to read configuration file %s: %w"
	configurationDecodeTemplateConstant       = "unable to decode configuration: %w"
)

// LoadedConfiguration reports where the effective configuration came from.
type LoadedConfiguration struct {
	// ConfigFileUsed holds the path of the configuration file that was
	// merged, or an empty string when no file participated.
	ConfigFileUsed string
}

// ConfigurationLoader layers configuration from declared defaults, embedded
// content, configuration files, and environment variables. Later layers
// override earlier ones: environment variables win over files, files win over
// embedded content, and embedded content wins over declared defaults.
type ConfigurationLoader struct {
	configurationName   string
	configurationType   string
	environmentPrefix   string
	searchPaths         []string
	embeddedContent     []byte
	embeddedContentType string
}

// NewConfigurationLoader constructs a loader for the named configuration file
// type. Search paths are consulted in order when no explicit file is given.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string(nil), searchPaths...),
	}
}

// SetEmbeddedConfiguration registers built-in configuration content that acts
// as the lowest-precedence layer.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(content []byte, contentType string) {
	loader.embeddedContent = content
	loader.embeddedContentType = contentType
}

// LoadConfiguration resolves the effective configuration into target and
// reports which configuration file, if any, was consumed. When explicitFilePath
// is non-empty it replaces the search-path lookup entirely.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string, defaults map[string]any, target any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigType(loader.configurationType)

	if len(loader.embeddedContent) > 0 {
		embeddedType := loader.embeddedContentType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		viperInstance.SetConfigType(embeddedType)
		if readError := viperInstance.ReadConfig(bytes.NewReader(loader.embeddedContent)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationReadTemplateConstant, readError)
		}
		viperInstance.SetConfigType(loader.configurationType)
	}

	for defaultKey, defaultValue := range defaults {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(environmentKeySourceSeparatorConstant, environmentKeyTargetSeparatorConstant))
	viperInstance.AutomaticEnv()

	consumedFilePath, mergeError := loader.mergeConfigurationFile(viperInstance, explicitFilePath)
	if mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}

	if decodeError := viperInstance.Unmarshal(target, viper.DecodeHook(configurationDecodeHook())); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: consumedFilePath}, nil
}

// configurationDecodeHook converts scalar environment-variable values into the
// richer types the configuration structs declare.
func configurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(environmentListSeparatorConstant),
	)
}

func (loader *ConfigurationLoader) mergeConfigurationFile(viperInstance *viper.Viper, explicitFilePath string) (string, error) {
	if len(explicitFilePath) > 0 {
		return loader.mergeFileAtPath(viperInstance, explicitFilePath)
	}

	configurationFileName := fmt.Sprintf(configurationFileNameTemplateConstant, loader.configurationName, loader.configurationType)
	for _, searchPath := range loader.searchPaths {
		candidatePath := filepath.Join(searchPath, configurationFileName)
		if _, statError := os.Stat(candidatePath); statError != nil {
			continue
		}
		return loader.mergeFileAtPath(viperInstance, candidatePath)
	}
	return "", nil
}

func (loader *ConfigurationLoader) mergeFileAtPath(viperInstance *viper.Viper, configurationFilePath string) (string, error) {
	fileContent, readError := os.ReadFile(configurationFilePath)
	if readError != nil {
		return "", fmt.Errorf(configurationFileReadTemplateConstant, configurationFilePath, readError)
	}
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(fileContent)); mergeError != nil {
		return "", fmt.Errorf(configurationFileReadTemplateConstant, configurationFilePath, mergeError)
	}
	return configurationFilePath, nil
}
