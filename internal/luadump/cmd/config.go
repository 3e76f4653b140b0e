package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"

	"luadump/internal/binchunk"
	"luadump/internal/chunkfile"
)

// Config is the merged configuration: defaults, then config files, then
// LUADUMP_* environment variables, then command-line flags.
type Config struct {
	Layout      string `json:"layout,omitempty" jsonschema:"title=Header Layout,description=Header layout of the chunks,enum=auto,enum=compact,enum=extended,default=auto"`
	MaxElements uint32 `json:"maxElements,omitempty" jsonschema:"title=Max Elements,description=Largest accepted count for any prototype array (0 means the built-in limit)"`
	Key         string `json:"key,omitempty" jsonschema:"title=XXTEA Key,description=Key for XXTEA-encrypted chunks"`
	Signature   string `json:"signature,omitempty" jsonschema:"title=XXTEA Signature,description=Signature that prefixes encrypted chunks"`
	Full        bool   `json:"full,omitempty" jsonschema:"title=Full Listing,description=Include constants and locals and upvalues tables"`
	Raw         bool   `json:"raw,omitempty" jsonschema:"title=Raw Words,description=Print instruction words in hex"`
	Jobs        int    `json:"jobs,omitempty" jsonschema:"title=Jobs,description=Files decoded concurrently (0 means one per CPU),minimum=0"`
	Debug       bool   `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
}

func defaultConfig() *Config {
	return &Config{Layout: binchunk.LayoutAuto.String()}
}

// defaultConfigPath is $XDG_CONFIG_HOME/luadump/config.json or the
// platform equivalent.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "luadump", "config.json")
}

// mergeFile reads a HuJSON file into c. A missing file is ignored unless
// required is set.
func (c *Config) mergeFile(path string, required bool) error {
	huJSONData, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	jsonData, err := hujson.Standardize(huJSONData)
	if err != nil {
		return fmt.Errorf("read %s: %v", path, err)
	}
	if err := jsonv2.Unmarshal(jsonData, c, jsonv2.RejectUnknownMembers(false)); err != nil {
		return fmt.Errorf("read %s: %v", path, err)
	}
	return nil
}

func (c *Config) mergeEnvironment() error {
	if v := os.Getenv("LUADUMP_LAYOUT"); v != "" {
		c.Layout = v
	}
	if v := os.Getenv("LUADUMP_KEY"); v != "" {
		c.Key = v
	}
	if v := os.Getenv("LUADUMP_SIGNATURE"); v != "" {
		c.Signature = v
	}
	if v := os.Getenv("LUADUMP_MAX_ELEMENTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("LUADUMP_MAX_ELEMENTS: %v", err)
		}
		c.MaxElements = uint32(n)
	}
	if v := os.Getenv("LUADUMP_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LUADUMP_JOBS: %v", err)
		}
		c.Jobs = n
	}
	return nil
}

// mergeFlags copies the flags the user set explicitly. Flags that are not
// defined on cmd are skipped.
func (c *Config) mergeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("layout") {
		c.Layout, _ = flags.GetString("layout")
	}
	if changed("max-elements") {
		c.MaxElements, _ = flags.GetUint32("max-elements")
	}
	if changed("key") {
		c.Key, _ = flags.GetString("key")
	}
	if changed("signature") {
		c.Signature, _ = flags.GetString("signature")
	}
	if changed("full") {
		c.Full, _ = flags.GetBool("full")
	}
	if changed("raw") {
		c.Raw, _ = flags.GetBool("raw")
	}
	if changed("jobs") {
		c.Jobs, _ = flags.GetInt("jobs")
	}
	if changed("debug") {
		c.Debug, _ = flags.GetBool("debug")
	}
}

func (c *Config) validate() error {
	if _, err := binchunk.ParseLayout(c.Layout); err != nil {
		return err
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if c.Signature != "" && c.Key == "" {
		return errors.New("a signature was given without a key")
	}
	return nil
}

// loadConfig builds the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	c := defaultConfig()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		if err := c.mergeFile(path, true); err != nil {
			return nil, err
		}
	} else if def := defaultConfigPath(); def != "" {
		if err := c.mergeFile(def, false); err != nil {
			return nil, err
		}
	}
	if err := c.mergeEnvironment(); err != nil {
		return nil, err
	}
	c.mergeFlags(cmd)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decoder() *binchunk.Decoder {
	layout, _ := binchunk.ParseLayout(c.Layout)
	return binchunk.NewDecoder(
		binchunk.WithLayout(layout),
		binchunk.WithMaxElements(c.MaxElements),
	)
}

func (c *Config) chunkOptions() chunkfile.Options {
	return chunkfile.Options{Key: c.Key, Signature: c.Signature}
}

func (c *Config) jobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.GOMAXPROCS(0)
}
