/*
Package cmd implements the command-line interface for HiveMind.
It provides commands for indexing documents, asking questions, chatting and
serving the engine over HTTP or MCP.
*/
package cmd

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/hivemind/pkg/config"
	"github.com/theapemachine/hivemind/pkg/logging"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

var (
	projectName = "hivemind"
	version     = "0.1.0"
	cfgFile     string
	cfg         *config.Config

	rootCmd = &cobra.Command{
		Use:   projectName,
		Short: "Answer questions over your documents with a knowledge graph",
		Long:  longRoot,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if cfg, err = config.Load(viper.GetViper()); err != nil {
				return err
			}

			logging.SetLevel(cfg.Log.Level)
			return nil
		},
		SilenceUsage: true,
	}
)

/*
Execute is the main entry point for the HiveMind CLI.
*/
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)
}

/*
initConfig loads API keys from .env files and reads the config file into
viper.
*/
func initConfig() {
	for _, file := range []string{".env", ".env.local"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to load env file", "file", file, "error", err)
		}
	}

	home, _ := os.UserHomeDir()

	if err := readConfig(viper.GetViper(), cfgFile, filepath.Join(home, "."+projectName)); err != nil {
		log.Fatal(err)
	}
}

/*
readConfig reads file when one is given. Otherwise it reads config.yml from
dir, writing the embedded default there first if it does not exist yet.
*/
func readConfig(v *viper.Viper, file, dir string) error {
	if file != "" {
		v.SetConfigFile(file)
		return v.ReadInConfig()
	}

	if err := writeConfig(dir); err != nil {
		return err
	}

	v.SetConfigFile(filepath.Join(dir, "config.yml"))
	return v.ReadInConfig()
}

/*
writeConfig writes the default config file into dir unless one is there.
*/
func writeConfig(dir string) (err error) {
	var (
		fh  fs.File
		buf bytes.Buffer
	)

	if !CheckFileExists(dir) {
		if err = os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	fullPath := filepath.Join(dir, "config.yml")

	if CheckFileExists(fullPath) {
		return nil
	}

	if fh, err = embedded.Open("cfg/config.yml"); err != nil {
		return fmt.Errorf("failed to open embedded config file: %w", err)
	}

	defer fh.Close()

	if _, err = io.Copy(&buf, fh); err != nil {
		return fmt.Errorf("failed to read embedded config file: %w", err)
	}

	if err = os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info("wrote config file", "path", fullPath)
	return nil
}

func CheckFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, os.ErrNotExist)
}

var longRoot = `
HiveMind indexes documents into a similarity index and a knowledge graph of
entity relations, then answers questions by fusing graph connections, similar
passages and recent conversation into one grounded prompt.
`
