// Command verseflow is the CLI for the VerseFlow pipeline.
// It converts translation files between formats, runs quality checks,
// detects formats, and serves the upload API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ulikunitz/xz"

	"github.com/verseflow/verseflow/core/canon"
	"github.com/verseflow/verseflow/internal/checks"
	"github.com/verseflow/verseflow/internal/formats"
	"github.com/verseflow/verseflow/internal/logging"
	"github.com/verseflow/verseflow/internal/pipeline"
	"github.com/verseflow/verseflow/internal/web"

	// Register all built-in format handlers
	_ "github.com/verseflow/verseflow/internal/formats/all"
)

const version = "0.2.0"

// CLI defines the command-line interface for verseflow.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Convert ConvertCmd `cmd:"" help:"Convert a translation file between formats"`
	Check   CheckCmd   `cmd:"" help:"Run quality checks and report issues"`
	Detect  DetectCmd  `cmd:"" help:"Detect the format of a file"`
	Serve   ServeCmd   `cmd:"" help:"Start the upload API server"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func initLogging() {
	level := map[string]logging.Level{
		"debug": logging.LevelDebug,
		"info":  logging.LevelInfo,
		"warn":  logging.LevelWarn,
		"error": logging.LevelError,
	}[CLI.LogLevel]
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

// loadCanon loads a custom canon table, or nil for the embedded default.
func loadCanon(path string) (*canon.Table, error) {
	if path == "" {
		return nil, nil
	}
	table, err := canon.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load canon table: %w", err)
	}
	return table, nil
}

func parseCheckTokens(raw string) ([]checks.Kind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.EqualFold(raw, "all") {
		return checks.Kinds(), nil
	}
	var kinds []checks.Kind
	for _, token := range strings.Split(raw, ",") {
		k, err := checks.ParseKind(token)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ConvertCmd converts a translation file between formats.
type ConvertCmd struct {
	Path     string `arg:"" help:"Path to input file" type:"existingfile"`
	From     string `help:"Input format (default: detect from filename and content)"`
	To       string `required:"" help:"Output format"`
	Out      string `short:"o" help:"Output path (default: stdout)" type:"path"`
	Checks   string `help:"Checks to run: comma-separated tokens or 'all'"`
	Annotate bool   `help:"Carry issues into the output where the format supports it"`
	Canon    string `help:"Custom canon table (YAML)" type:"existingfile"`
	MaxBytes int64  `name:"max-bytes" help:"Reject inputs larger than this many bytes"`
	XZ       bool   `name:"xz" help:"Compress the output with xz"`
}

func (c *ConvertCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	table, err := loadCanon(c.Canon)
	if err != nil {
		return err
	}
	kinds, err := parseCheckTokens(c.Checks)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(context.Background(), data, pipeline.Options{
		From:          c.From,
		To:            c.To,
		Filename:      c.Path,
		Checks:        kinds,
		Canon:         table,
		MaxInputBytes: c.MaxBytes,
		Annotate:      c.Annotate,
	})
	if err != nil {
		return err
	}

	for _, is := range res.Issues {
		fmt.Fprintln(os.Stderr, is)
	}

	output := res.Output
	if c.XZ {
		output, err = xzCompress(output)
		if err != nil {
			return fmt.Errorf("compress output: %w", err)
		}
	}

	if c.Out == "" {
		_, err = os.Stdout.Write(output)
		return err
	}
	if err := os.WriteFile(c.Out, output, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Converted: %s (%s) -> %s (%s), %d records\n",
		c.Path, res.From, c.Out, res.To, res.Stats.Records)
	return nil
}

func xzCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckCmd runs quality checks and reports issues.
type CheckCmd struct {
	Path   string `arg:"" help:"Path to input file" type:"existingfile"`
	From   string `help:"Input format (default: detect)"`
	Checks string `default:"all" help:"Checks to run: comma-separated tokens or 'all'"`
	Canon  string `help:"Custom canon table (YAML)" type:"existingfile"`
	JSON   bool   `help:"Output issues as JSON"`
}

// checkReport is the JSON shape of a check run.
type checkReport struct {
	File    string         `json:"file"`
	Format  string         `json:"format"`
	Records int            `json:"records"`
	Issues  []checks.Issue `json:"issues"`
	Counts  map[string]int `json:"counts"`
}

func (c *CheckCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	table, err := loadCanon(c.Canon)
	if err != nil {
		return err
	}
	kinds, err := parseCheckTokens(c.Checks)
	if err != nil {
		return err
	}

	from := c.From
	if from == "" {
		from = formats.Detect(c.Path, data)
	}
	set, err := formats.Parse(from, data)
	if err != nil {
		return err
	}
	issues := checks.Run(set, kinds, table)
	counts := checks.CountBySeverity(issues)

	if c.JSON {
		report := checkReport{
			File:    c.Path,
			Format:  from,
			Records: set.Len(),
			Issues:  issues,
			Counts:  counts,
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("File: %s (%s)\n", c.Path, from)
		fmt.Printf("Records: %d\n\n", set.Len())
		if len(issues) == 0 {
			fmt.Println("No issues found.")
		} else {
			for _, is := range issues {
				fmt.Printf("  %s\n", is)
			}
			fmt.Printf("\nTotal: %d error(s), %d warning(s), %d info\n",
				counts["error"], counts["warning"], counts["info"])
		}
	}

	if counts["error"] > 0 {
		return fmt.Errorf("%d error(s) found", counts["error"])
	}
	return nil
}

// DetectCmd detects the format of a file.
type DetectCmd struct {
	Path string `arg:"" help:"Path to file" type:"existingfile"`
}

func (c *DetectCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fmt.Println(formats.Detect(c.Path, data))
	return nil
}

// ServeCmd starts the upload API server.
type ServeCmd struct {
	Port      int    `default:"8080" help:"Port to listen on"`
	DB        string `default:"verseflow.db" help:"Path to the SQLite job store" type:"path"`
	MaxUpload int64  `name:"max-upload" help:"Maximum upload size in bytes"`
}

func (c *ServeCmd) Run() error {
	srv, err := web.New(web.Config{
		Port:           c.Port,
		DBPath:         c.DB,
		MaxUploadBytes: c.MaxUpload,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("verseflow %s\n", version)
	fmt.Printf("Formats: %s\n", strings.Join(formats.Tokens(), ", "))
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("verseflow"),
		kong.Description("Translation record ingestion, validation, and conversion pipeline."),
		kong.UsageOnError(),
	)
	initLogging()
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
