// CardStencil — membership card generation from PDF templates.
//
// Usage:
//
//	cardstencil render -template <path> -record <path> -o <file>
//	cardstencil validate -template <path> [-record <path>]
//	cardstencil serve [-env .env]
//	cardstencil init [-dir .]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/xob0t/CardStencil/internal/config"
	"github.com/xob0t/CardStencil/pkg/render"
	"github.com/xob0t/CardStencil/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "validate", "schema":
		err = runValidate(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

// setup loads configuration and installs the process logger.
func setup(envPath string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)
	render.SetLogger(log)
	return cfg, log, nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)

	var (
		templatePath string
		recordPath   string
		output       string
		envPath      string
	)

	fs.StringVar(&templatePath, "template", "template.json", "Path to template JSON")
	fs.StringVar(&recordPath, "record", "", "Path to record JSON (optional)")
	fs.StringVar(&output, "o", "", "Output PDF path")
	fs.StringVar(&output, "output", "", "Output PDF path")
	fs.StringVar(&envPath, "env", "", "Path to .env file (default .env)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}

	cfg, _, err := setup(envPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	tpl, err := loadTemplate(templatePath)
	if err != nil {
		return err
	}
	rec, err := loadRecord(recordPath, tpl)
	if err != nil {
		return err
	}

	r := render.New(ctx, cfg.RenderOptions())
	res, err := r.RenderCard(ctx, tpl, rec)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if err := os.WriteFile(output, res.Bytes, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("Done: %s (%d bytes, %d warnings)\n", output, len(res.Bytes), len(res.Warnings))
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var templatePath, recordPath string
	fs.StringVar(&templatePath, "template", "template.json", "Path to template JSON")
	fs.StringVar(&recordPath, "record", "", "Path to record JSON (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tpl, err := template.LoadFile(templatePath)
	if err != nil {
		return err
	}

	var keys []string
	if recordPath != "" {
		rec, err := readRecord(recordPath)
		if err != nil {
			return err
		}
		keys = rec.Keys()
	}

	res, err := template.Validate(tpl, keys)
	if err != nil {
		return err
	}
	fmt.Print(template.Describe(tpl))
	if recordPath == "" {
		return nil
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	fmt.Printf("%d fields, %d warnings\n", len(res.Fields), len(res.Warnings))
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var dir string
	fs.StringVar(&dir, "dir", ".", "Directory to write the sample files into")
	if err := fs.Parse(args); err != nil {
		return err
	}

	files, err := writeSamples(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Created: %v\n", files)
	fmt.Println("Run: cardstencil render -template template.json -record record.json -o card.pdf")
	return nil
}

func readRecord(path string) (render.Record, error) {
	var rec render.Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse record: %w", err)
	}
	return rec, nil
}

func fatal(err error) {
	var fe *template.FieldError
	if errors.As(err, &fe) {
		fmt.Fprintf(os.Stderr, "Error: field #%d (%q) is malformed\n", fe.Index, fe.Name)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`CardStencil — Membership Card Generation

USAGE:
    cardstencil render -template <path> [-record <path>] -o <file>
    cardstencil validate -template <path> [-record <path>]
    cardstencil serve [-env .env]
    cardstencil init [-dir .]

RENDER:
    -template <path>       Template JSON (basePdf may be a path relative to it)
    -record <path>         Record JSON {"id": ..., "values": {...}} (optional)
    -o, --output <path>    Output PDF
    -env <path>            .env file with FONT_*, VERIFY_BASE_URL, FETCH_TIMEOUT

VALIDATE:
    Prints the template's fields per page. With -record, also reports
    duplicate, unmapped and unused names.

SERVE:
    Starts the HTTP API. Configuration comes from the environment and .env:
    LISTEN, PUBLIC_URL, TEMPLATE_STORE (file|postgres|mysql|redis),
    TEMPLATE_FILE, DATABASE_URL, REDIS_ADDR, CARD_DIR, LOG_LEVEL.

EXAMPLES:
    cardstencil init
    cardstencil validate -template template.json -record record.json
    cardstencil render -template template.json -record record.json -o card.pdf
    TEMPLATE_STORE=postgres DATABASE_URL=postgres://... cardstencil serve
`)
}
