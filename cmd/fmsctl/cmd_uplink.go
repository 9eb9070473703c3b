package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/db"
	"infinite-experiment/fmsuplink/internal/extract"
	"infinite-experiment/fmsuplink/internal/navdata"
	"infinite-experiment/fmsuplink/internal/providers"
	"infinite-experiment/fmsuplink/internal/services"
)

var (
	uplinkFile       string
	uplinkProcedures bool
	uplinkTimeout    time.Duration
)

// classifyCmd prints the chunks of an OFP navlog
var classifyCmd = &cobra.Command{
	Use:   "classify [ofp.json]",
	Short: "Classify the navigation log of an OFP file",
	Long: `Groups the navlog of an OFP document into route chunks and prints
them with the route header. Use "-" to read the document from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readOFP(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), services.ClassifyResponse(extract.Summarize(doc)))
	},
}

// uplinkCmd rebuilds a route against the local nav database
var uplinkCmd = &cobra.Command{
	Use:   "uplink [pilot]",
	Short: "Build the FMS route of a pilot's latest OFP",
	Long: `Fetches the latest OFP of a pilot, or reads --file, and rebuilds its
route against the configured nav database.

Example:
  fmsctl uplink jdoe --procedures=false
  fmsctl uplink --file ofp.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUplink,
}

func init() {
	uplinkCmd.Flags().StringVarP(&uplinkFile, "file", "f", "", "Read the OFP from a file instead of fetching it")
	uplinkCmd.Flags().BoolVar(&uplinkProcedures, "procedures", true, "Attach departure and arrival procedures")
	uplinkCmd.Flags().DurationVar(&uplinkTimeout, "timeout", 30*time.Second, "Overall timeout")
}

func runUplink(cmd *cobra.Command, args []string) error {
	if uplinkFile == "" && len(args) == 0 {
		return fmt.Errorf("a pilot or --file is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), uplinkTimeout)
	defer cancel()

	navDB, err := db.OpenNavDB(cfg.NavDB.Driver, cfg.NavDB.DSN, cfg.NavDB.MaxOpenConns)
	if err != nil {
		return err
	}
	if sqlDB, err := navDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := navdata.NewCachedDatabase(navdata.NewStore(navDB, nil), cfg.NavDB.CacheSize, cfg.NavDB.CacheTTL, nil)
	provider := providers.NewSimBriefProvider(cfg.SimBrief.BaseURL, cfg.SimBrief.Timeout, nil)
	cache := common.NewMemoryCache(cfg.Uplink.OFPCacheTTL, 0)
	svc := services.NewUplinkService(provider, store, cache, nil, nil, cfg.Uplink.OFPCacheTTL, cfg.Uplink.Procedures)

	opts := services.UplinkOptions{Procedures: &uplinkProcedures}

	var (
		result *services.UplinkResult
		runErr error
	)
	if uplinkFile != "" {
		doc, err := readOFP(uplinkFile)
		if err != nil {
			return err
		}
		result, runErr = svc.UplinkDocument(ctx, doc, opts)
	} else {
		result, runErr = svc.Uplink(ctx, args[0], opts)
	}

	if result == nil {
		return runErr
	}
	if err := printJSON(cmd.OutOrStdout(), services.UplinkResponse(result, runErr)); err != nil {
		return err
	}
	return runErr
}
