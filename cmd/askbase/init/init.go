// Package initcmder provides the init command for initializing a local .askbase
// directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/askbase/pkg/cliui"
	"github.com/papercomputeco/askbase/pkg/config"
	"github.com/papercomputeco/askbase/pkg/dotdir"
)

const (
	configFile         = "config.toml"
	remoteFetchTimeout = 30 * time.Second
)

const initLongDesc string = `Initialize a new .askbase/ directory in the current working directory.

Creates a local .askbase/ directory that takes precedence over the default
~/.askbase/ directory for configuration, credentials and CLI state, and
writes a config.toml with default settings.

Use --preset to start from a provider preset (ollama, openai, groq) or from
a remote config.toml fetched over HTTP. A preset overwrites any existing
config.toml.

Examples:
  askbase init
  askbase init --preset openai
  askbase init --preset https://example.com/askbase/config.toml`

const initShortDesc string = "Initialize a local .askbase/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(ctx context.Context, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	configPath := filepath.Join(dir, configFile)

	// A bad preset must not leave a directory behind.
	var (
		presetCfg *config.Config
		remote    []byte
	)
	switch {
	case isURL(preset):
		remote, err = fetchRemoteConfig(ctx, preset)
		if err != nil {
			return err
		}
	case preset != "":
		presetCfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	alreadyInitialized := err == nil && info.IsDir()
	if alreadyInitialized && preset == "" {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .askbase directory: %w", err)
	}

	if remote != nil {
		if err := os.WriteFile(configPath, remote, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	} else {
		if presetCfg == nil {
			presetCfg = config.NewDefaultConfig()
		}
		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfger.SaveConfig(presetCfg); err != nil {
			return err
		}
	}

	fmt.Printf("\n  %s Initialized %s\n", cliui.SuccessMark, cliui.NameStyle.Render(dir))
	if preset != "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("config.toml written from preset "+preset))
	}
	fmt.Println()

	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fetchRemoteConfig downloads a config.toml and checks that it parses.
func fetchRemoteConfig(ctx context.Context, url string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	if _, err := config.ParseConfigTOML(data); err != nil {
		return nil, err
	}

	return data, nil
}
