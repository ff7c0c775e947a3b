package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/disintegration/imaging"

	"github.com/thereceipt/label-engine/internal/config"
	"github.com/thereceipt/label-engine/internal/generator"
	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/preview"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/registry"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	logger := log.New(stderr, "", 0)

	var err error
	switch args[0] {
	case "render":
		err = runRender(ctx, args[1:], stdout, logger)
	case "preview":
		err = runPreview(ctx, args[1:], logger)
	case "print":
		err = runPrint(ctx, args[1:], stdout, logger)
	case "ports":
		err = runPorts(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Label Engine CLI

Usage:
  label-cli <command> [flags]

Commands:
  render   Generate the ZPL stream for every record
  preview  Draw one record as a PNG
  print    Generate and send the stream to a printer
  ports    List registered printers, local serial ports and devices
  help     Show this message

Common flags:
  -layout <file>       Layout JSON (required)
  -data <file>         Records: a JSON array or {"data": [...]}
  -var key=value       Field for a single record, repeatable
  -dpi <n>             Printer resolution (default from config, 203)
  -offset-left <mm>    Horizontal calibration offset
  -offset-top <mm>     Vertical calibration offset
  -config <file>       Engine configuration (YAML)

Examples:
  label-cli render -layout shelf.json -data items.json -out labels.zpl
  label-cli render -layout shelf.json -var ITEM_CODIGO=ABC1
  label-cli preview -layout shelf.json -data items.json -record 2 -out label.png
  label-cli print -layout shelf.json -data items.json -printer tcp://192.168.1.50
  label-cli print -layout shelf.json -data items.json -printer serial:///dev/ttyUSB0?baud=9600
  label-cli print -config label-engine.yaml -layout shelf.json -data items.json -printer backroom

`)
}

// job is what every rendering command needs
type job struct {
	cfg     *config.Config
	layout  *labelformat.LabelLayout
	records []placeholder.Record
	opts    renderer.Options
	source  raster.ImageSource
}

type jobFlags struct {
	fs         *flag.FlagSet
	layoutPath *string
	dataPath   *string
	configPath *string
	vars       varsFlag
	dpi        *int
	offsetLeft *float64
	offsetTop  *float64
}

func newJobFlags(name string) *jobFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	jf := &jobFlags{
		fs:         fs,
		layoutPath: fs.String("layout", "", "layout JSON file"),
		dataPath:   fs.String("data", "", "records JSON file"),
		configPath: fs.String("config", "", "configuration file"),
		dpi:        fs.Int("dpi", 0, "printer resolution in dots per inch"),
		offsetLeft: fs.Float64("offset-left", 0, "horizontal offset in mm"),
		offsetTop:  fs.Float64("offset-top", 0, "vertical offset in mm"),
	}
	fs.Var(&jf.vars, "var", "record field key=value (repeatable)")
	return jf
}

// load parses the flags and reads everything the command renders from
func (jf *jobFlags) load(args []string) (*job, error) {
	if err := jf.fs.Parse(args); err != nil {
		return nil, err
	}
	if *jf.layoutPath == "" {
		return nil, errors.New("-layout is required")
	}

	cfg, err := config.Load(*jf.configPath)
	if err != nil {
		return nil, err
	}

	layout, err := labelformat.ParseFile(*jf.layoutPath)
	if err != nil {
		return nil, err
	}

	var records []placeholder.Record
	if *jf.dataPath != "" {
		records, err = loadRecords(*jf.dataPath)
		if err != nil {
			return nil, err
		}
	}
	if len(jf.vars) > 0 {
		if len(records) == 0 {
			records = []placeholder.Record{{}}
		}
		for _, rec := range records {
			for k, v := range jf.vars {
				rec[k] = v
			}
		}
	}

	opts := cfg.Render
	if *jf.dpi != 0 {
		opts.DPI = *jf.dpi
	}
	jf.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "offset-left":
			opts.OffsetLeftMM = *jf.offsetLeft
		case "offset-top":
			opts.OffsetTopMM = *jf.offsetTop
		}
	})

	// relative image paths resolve next to the layout unless configured
	baseDir := cfg.Images.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(*jf.layoutPath)
	}
	source := raster.NewDefaultSource(&http.Client{Timeout: cfg.FetchTimeout()}, baseDir, cfg.Images.MaxBytes)

	return &job{
		cfg:     cfg,
		layout:  layout,
		records: records,
		opts:    opts,
		source:  source,
	}, nil
}

func (j *job) generate(ctx context.Context, logger *log.Logger) (*generator.Output, error) {
	gen, err := generator.New(j.layout, j.opts,
		generator.WithImageSource(j.source),
		generator.WithLogger(logger),
		generator.WithPrefetchWorkers(j.cfg.Images.PrefetchWorkers),
	)
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, j.records)
}

func runRender(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) error {
	jf := newJobFlags("render")
	outPath := jf.fs.String("out", "", "output file (default stdout)")

	j, err := jf.load(args)
	if err != nil {
		return err
	}

	out, err := j.generate(ctx, logger)
	if err != nil {
		return err
	}

	if *outPath == "" {
		_, err = io.WriteString(stdout, out.String())
		return err
	}
	if err := os.WriteFile(*outPath, []byte(out.String()), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Printf("Wrote %d label(s) to %s", len(out.Frames), *outPath)
	return nil
}

func runPreview(ctx context.Context, args []string, logger *log.Logger) error {
	jf := newJobFlags("preview")
	outPath := jf.fs.String("out", "", "output image, format from extension (required)")
	index := jf.fs.Int("record", 0, "zero-based record to draw")

	j, err := jf.load(args)
	if err != nil {
		return err
	}
	if *outPath == "" {
		return errors.New("-out is required")
	}

	var rec placeholder.Record
	if len(j.records) > 0 {
		if *index < 0 || *index >= len(j.records) {
			return fmt.Errorf("-record %d out of range (have %d records)", *index, len(j.records))
		}
		rec = j.records[*index]
	}

	bitmaps := raster.NewCache(raster.New(j.source))
	img, err := preview.New(j.opts, bitmaps, logger).Render(ctx, j.layout, rec)
	if err != nil {
		return err
	}

	if err := imaging.Save(img, *outPath); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

func runPrint(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) error {
	jf := newJobFlags("print")
	targetAddr := jf.fs.String("printer", "", "printer target (default from config or LABEL_PRINTER)")

	j, err := jf.load(args)
	if err != nil {
		return err
	}

	if *targetAddr == "" {
		*targetAddr = j.cfg.Printer.Target
	}
	if *targetAddr == "" {
		return errors.New("-printer is required")
	}
	reg, err := registry.New(j.cfg.Printer.RegistryPath)
	if err != nil {
		return err
	}
	target, err := reg.Resolve(*targetAddr)
	if err != nil {
		return err
	}

	out, err := j.generate(ctx, logger)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, j.cfg.DialTimeout())
	defer cancel()

	if err := printer.Send(sendCtx, target, []byte(out.String())); err != nil {
		// hand the stream over so it can be printed another way
		io.WriteString(stdout, out.String())
		return fmt.Errorf("print failed, stream written to stdout: %w", err)
	}

	logger.Printf("Sent %d label(s) to %s", len(out.Frames), target)
	return nil
}

func runPorts(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ports", flag.ContinueOnError)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	reg, err := registry.New(cfg.Printer.RegistryPath)
	if err != nil {
		return err
	}

	if entries := reg.All(); len(entries) > 0 {
		fmt.Fprintln(stdout, "Registered printers:")
		for _, e := range entries {
			fmt.Fprintf(stdout, "  %-16s %-32s %s\n", e.Name, e.Target, e.Description)
		}
		fmt.Fprintln(stdout)
	}

	candidates := printer.Candidates()
	if len(candidates) == 0 {
		fmt.Fprintln(stdout, "No local ports found")
		return nil
	}

	fmt.Fprintln(stdout, "Local ports:")
	for _, c := range candidates {
		fmt.Fprintf(stdout, "  %-32s %s\n", c.Target, c.Description)
	}
	return nil
}
