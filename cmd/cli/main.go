package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"blend-lens/pkg/config"
	"blend-lens/pkg/parser"
	"blend-lens/pkg/printer"
	"blend-lens/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const usage = "Usage: blend-lens [flags] <input.blend> [output.xml]"

// createOutput opens the destination document
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("blend-lens", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "YAML config file (default $"+config.EnvFile+")")
		noTypes     = fs.Bool("no-types", false, "Omit the type and structure catalog")
		noData      = fs.Bool("no-data", false, "Omit the data blocks")
		rawPointers = fs.Bool("raw-pointers", false, "Print stored pointer values instead of a placeholder")
		digest      = fs.Bool("digest", false, "Add a SHA-256 digest attribute to every data block")
		logLevel    = fs.String("log-level", "", "Log level: debug, info, warn, error")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	// Positional arguments: source and optional destination
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return 1
	}
	srcPath := fs.Arg(0)
	dstPath := fs.Arg(1)

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		printError(stderr, nil, "INVALID_CONFIG", err.Error())
		return 1
	}
	// Flags win over the config file
	if *noTypes {
		cfg.Output.Types = false
	}
	if *noData {
		cfg.Output.Data = false
	}
	if *rawPointers {
		cfg.Output.RawPointers = true
	}
	if *digest {
		cfg.Output.BlockDigest = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	opts, err := cfg.PrinterOptions()
	if err != nil {
		printError(stderr, nil, "INVALID_CONFIG", err.Error())
		return 1
	}

	logger, err := newLogger(cfg.Log.Level, stderr)
	if err != nil {
		printError(stderr, nil, "INVALID_CONFIG", err.Error())
		return 1
	}
	defer func() { _ = logger.Sync() }()
	parser.SetLogger(logger)
	printer.SetLogger(logger)

	// Read input
	data, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintln(stderr, usage)
		printError(stderr, nil, "FILE_NOT_FOUND", fmt.Sprintf("open: unable to open file %s: %v", srcPath, err))
		return 1
	}

	// Open output; JSON error reports only go to stdout when it is not the document
	out := stdout
	var report io.Writer
	var dst io.WriteCloser
	if dstPath != "" {
		f, err := createOutput(dstPath)
		if err != nil {
			fmt.Fprintln(stderr, usage)
			printError(stderr, nil, "IO_ERROR", fmt.Sprintf("unable to write %s: %v", dstPath, err))
			return 1
		}
		dst, out = f, f
		report = stdout
	}

	sink := printer.NewXMLSink(out)
	err = printer.Convert(bytes.NewReader(data), sink, opts)
	if err == nil {
		err = sink.Close()
	}
	if dst != nil {
		if cerr := dst.Close(); cerr != nil && err == nil {
			logger.Error("close failed", zap.String("file", dstPath), zap.Error(cerr))
			printError(stderr, report, "IO_ERROR", fmt.Sprintf("unable to write %s: %v", dstPath, cerr))
			return 1
		}
	}
	if err != nil {
		logger.Error("decode failed", zap.String("file", srcPath), zap.Error(err))
		printError(stderr, report, parser.Code(err), err.Error())
		return 1
	}
	logger.Debug("decode finished", zap.String("file", srcPath), zap.Int("bytes", len(data)))
	return 0
}

// newLogger writes to w at level, human readable when w is a terminal
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if isTerminal(w) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl)), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printError writes a styled line to stderr and, when report is set, the
// JSON error object to report
func printError(stderr, report io.Writer, code, message string) {
	if report != nil {
		type errorOutput struct {
			OK    bool             `json:"ok"`
			Error *types.ErrorInfo `json:"error"`
		}
		errJSON, _ := json.Marshal(errorOutput{
			OK:    false,
			Error: &types.ErrorInfo{Code: code, Message: message},
		})
		fmt.Fprintln(report, string(errJSON))
	}

	style := lipgloss.NewRenderer(stderr).NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	fmt.Fprintf(stderr, "%s %s\n", style.Render("Error:"), message)
}
