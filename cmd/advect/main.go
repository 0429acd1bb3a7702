package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/maseology/advect"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	runPath  string
	outDir   string
	logLevel string
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "advect",
	Short: "Multi-block particle advection",
	Long: `advect traces particles through analytic velocity fields partitioned
into axis-aligned blocks, writing final positions and, in streamline mode,
pathlines as VTK, GeoJSON and gob.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = advect.NewLogger(logLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd advects the seeds of a run file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Advect the seeds of a run file",
	Long: `Loads a YAML run file (configuration keys, blocks and seeds), runs the
advection and writes particles.csv to the output directory. Streamline runs
also write pathlines.vtk, pathlines.geojson, pathlines.csv and pathlines.gob.

Example:
  advect run --config run.yaml --out results`,
	RunE: runAdvection,
}

// configCmd prints the default configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default run configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := yaml.Marshal(advect.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().StringVarP(&runPath, "config", "c", "", "run file (YAML)")
	runCmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	_ = runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd, configCmd)
}

func runAdvection(cmd *cobra.Command, args []string) error {
	rf, err := advect.LoadRunFile(runPath)
	if err != nil {
		return err
	}
	blocks, seeds, err := rf.Build()
	if err != nil {
		return err
	}
	adv, err := advect.NewAdvector(blocks, nil, rf.Config, advect.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	res, err := adv.Run(ctx, seeds)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(outDir, "particles.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := advect.WriteParticlesCSV(f, res.Particles); err != nil {
		return err
	}

	if res.Mode == advect.Streamline {
		pl, pxr := res.Pathlines(seeds)
		if err := advect.ExportVTKpathlines(filepath.Join(outDir, "pathlines.vtk"), pl); err != nil {
			return err
		}
		if err := advect.ExportPathlinesGob(filepath.Join(outDir, "pathlines.gob"), pl, pxr); err != nil {
			return err
		}
		g, err := os.Create(filepath.Join(outDir, "pathlines.csv"))
		if err != nil {
			return err
		}
		defer g.Close()
		if err := advect.WritePathlinesCSV(g, res); err != nil {
			return err
		}
	}
	if err := advect.ExportGeoJSON(filepath.Join(outDir, "pathlines.geojson"), res, seeds); err != nil {
		return err
	}

	logger.Info("results written",
		zap.String("dir", outDir),
		zap.Int("particles", len(res.Particles)),
		zap.Int("rejected", len(res.Rejected)),
		zap.Bool("partial", res.Partial),
	)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
