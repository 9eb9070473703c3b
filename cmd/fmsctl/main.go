package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"infinite-experiment/fmsuplink/internal/config"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/models/dtos"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fmsctl",
	Short: "fmsctl - offline tooling for the FMS uplink service",
	Long: `fmsctl runs the route uplink pipeline from the command line.

It reads the same configuration file as the server, so navigation data
imported here is what the server reads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		appEnv := "production"
		if verbose {
			appEnv = "development"
		}
		return logging.Init(appEnv)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "fmsuplink.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(classifyCmd, uplinkCmd, navdbCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readOFP loads an OFP JSON document from path, or stdin for "-"
func readOFP(path string) (*dtos.OFPDocument, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var doc dtos.OFPDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode OFP %s: %w", path, err)
	}
	return &doc, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
