package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"hermannm.dev/devlog"

	"osnma/merkle"
	"osnma/osnma"
	"osnma/report"
	"osnma/testvectors"
)

var (
	version = "0.1.0"

	logLevel slog.LevelVar
	debug    bool

	vectorPath string
	pubkeyPath string
	treePath   string
	krootPath  string
	saveKroot  bool
	outFormat  string
	csvSep     string
	outPath    string
)

var rootCmd = &cobra.Command{
	Use:     "osnma",
	Short:   "Galileo OSNMA authentication engine",
	Version: version,
	Long: `osnma replays a Galileo OSNMA test vector through the
authentication engine and reports the result of every tag
authentication attempt.`,
	RunE: runReplay,
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&vectorPath, "vector", "", "EUSPA test-vector CSV file (required)")
	rootCmd.Flags().StringVar(&pubkeyPath, "pubkey", "", "PEM file holding the Galileo OSNMA public key (required)")
	rootCmd.Flags().StringVar(&treePath, "merkle-tree", "", "Merkle tree XML file, for verifying public-key renewals")
	rootCmd.Flags().StringVar(&krootPath, "kroot", "", "warm-start DSM-KROOT file written by a previous run")
	rootCmd.Flags().BoolVar(&saveKroot, "save-kroot", false, "persist every validated DSM-KROOT for warm start")
	rootCmd.Flags().StringVar(&outFormat, "format", "table", "report format: table, stream, or csv")
	rootCmd.Flags().StringVar(&csvSep, "csv-sep", ",", "field separator for --format csv")
	rootCmd.Flags().StringVar(&outPath, "out", "", "write the report to this file instead of stdout")

	_ = rootCmd.MarkFlagRequired("vector")
	_ = rootCmd.MarkFlagRequired("pubkey")
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	if debug {
		logLevel.Set(slog.LevelDebug)
	}

	pubkeyData, err := os.ReadFile(pubkeyPath)
	if err != nil {
		return fmt.Errorf("osnma: reading --pubkey: %w", err)
	}
	pubkey, err := osnma.LoadPublicKeyPEM(pubkeyData)
	if err != nil {
		return fmt.Errorf("osnma: %w", err)
	}
	slog.Info("loaded public key", "curve", pubkey.Curve.Params().Name)

	var tree *merkle.Tree
	if treePath != "" {
		t, err := merkle.LoadTreeXML(treePath)
		if err != nil {
			return fmt.Errorf("osnma: %w", err)
		}
		tree = &t
		slog.Info("loaded merkle tree root", "root", t.Root.Hex())
	}

	eng := osnma.NewEngine(pubkey, tree, saveKroot)

	if krootPath != "" {
		kroot, err := osnma.ReadKroot(krootPath)
		if err != nil {
			return fmt.Errorf("osnma: %w", err)
		}
		eng.WarmStart(kroot)
		slog.Info("warm-started from persisted DSM-KROOT", "file", krootPath)
	}

	out, closeOut, err := openReportWriter()
	if err != nil {
		return err
	}
	defer closeOut()

	eng.SetSubscriber(report.NewMulticast(newSink(outFormat, out)))

	reader, err := testvectors.Open(vectorPath)
	if err != nil {
		return fmt.Errorf("osnma: %w", err)
	}

	var processed int
	for {
		sf, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("osnma: reading subframe %d: %w", processed, err)
		}
		eng.ProcessSubframe(sf)
		processed++
	}

	slog.Info("replay complete", "subframes", processed, "final_state", eng.State().String())
	return nil
}

func newSink(format string, w io.Writer) report.Sink {
	switch strings.ToLower(format) {
	case "csv":
		return report.NewCSVSink(w, csvSep)
	case "stream":
		return report.NewStreamSink(w)
	default:
		return report.NewTableSink(w)
	}
}

func openReportWriter() (io.Writer, func(), error) {
	if outPath == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("osnma: opening --out: %w", err)
	}
	return f, func() { f.Close() }, nil
}
