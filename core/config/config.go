package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

type Configuration struct {
	configFs         afero.Fs
	configurationDir string

	DefaultPath      string   `json:"default_path" validate:"required"`
	LoginScript      string   `json:"login_script" validate:"required,startswith=/"`
	RCFiles          []string `json:"rc_files" validate:"dive,required"`
	LoginRCFiles     []string `json:"login_rc_files" validate:"dive,required"`
	FallbackHostname string   `json:"fallback_hostname" validate:"required,hostname_rfc1123"`
	UserPromptSuffix string   `json:"user_prompt_suffix"`
	RootPromptSuffix string   `json:"root_prompt_suffix"`
	EventLog         string   `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewReadOnlyFs(afero.NewMemMapFs())
	}
	return c.configFs
}

// DefaultSearchPath splits DefaultPath into directories.
func (c *Configuration) DefaultSearchPath() []string {
	return filepath.SplitList(c.DefaultPath)
}

// HasEventLog reports whether shell events should be recorded.
func (c *Configuration) HasEventLog() bool {
	return c.EventLog != ""
}

// EventLogPath is the location of the event log with relative paths resolved
// against the configuration directory.
func (c *Configuration) EventLogPath() string {
	if c.EventLog == "" || filepath.IsAbs(c.EventLog) {
		return c.EventLog
	}
	return filepath.Join(c.configurationDir, c.EventLog)
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLogPath(), os.O_RDONLY, 0600)
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
