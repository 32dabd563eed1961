package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-arrow/pkg/config"
	"github.com/ajitpratap0/nebula-arrow/pkg/nebulaerrors"
)

// ExampleDefault demonstrates the built-in defaults.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Log level: %s\n", cfg.Logging.Level)
	fmt.Printf("Minimum arrow-go: %s\n", cfg.Capability.MinimumVersion)
	fmt.Printf("ddof: %d\n", cfg.Compute.DefaultDDof)

	// Output:
	// Log level: warn
	// Minimum arrow-go: v18.0.0
	// ddof: 1
}

// ExampleParse shows environment substitution while loading YAML.
func ExampleParse() {
	os.Setenv("NEBULA_ARROW_LOG_LEVEL", "debug")
	defer os.Unsetenv("NEBULA_ARROW_LOG_LEVEL")

	cfg := config.Default()
	err := config.Parse([]byte(`
logging:
  level: ${NEBULA_ARROW_LOG_LEVEL}
capability:
  overrides:
    rank: unsupported
`), cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(cfg.Logging.Level, cfg.Capability.Overrides["rank"])

	// Output:
	// debug unsupported
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nebula-arrow.yaml")

	cfg := config.Default()
	cfg.Compute.DefaultDDof = 0
	cfg.Capability.Overrides["fill_null_forward"] = config.LevelCaveat
	require.NoError(t, config.Save(path, cfg))

	loaded := config.Default()
	require.NoError(t, config.Load(path, loaded))
	assert.Equal(t, 0, loaded.Compute.DefaultDDof)
	assert.Equal(t, config.LevelCaveat, loaded.Capability.Overrides["fill_null_forward"])
	assert.NoError(t, loaded.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), config.Default())
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"defaults", func(*config.Config) {}, false},
		{"bad version", func(c *config.Config) { c.Capability.MinimumVersion = "18" }, true},
		{"bad level", func(c *config.Config) { c.Capability.Overrides["rank"] = "maybe" }, true},
		{"long caveat spelling", func(c *config.Config) { c.Capability.Overrides["rank"] = "supported-with-caveat" }, false},
		{"negative ddof", func(c *config.Config) { c.Compute.DefaultDDof = -1 }, true},
		{"zero compression", func(c *config.Config) { c.Compute.MedianCompression = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
