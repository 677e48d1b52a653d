package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// cli runs one subcommand against a service.
type cli struct {
	svc *core.Service
	out io.Writer
}

// run dispatches args and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	var err error
	switch args[0] {
	case "import":
		err = c.importCmd(ctx, args[1:])
	case "rate":
		err = c.rateCmd(ctx, args[1:])
	case "convert":
		err = c.convertCmd(ctx)
	case "value":
		err = c.valueCmd(ctx, args[1:])
	case "migrate":
		// Open applies the schema before any command runs
		fmt.Fprintln(c.out, "schema applied")
	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gamevault %s: %s\n", args[0], describe(err))
		return 1
	}
	return 0
}

// describe renders err for the terminal: the user message and code for
// known failures, the raw error otherwise.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return fmt.Sprintf("%v (%s)", err, core.MapError(err).Code)
	}
	return err.Error()
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ============================================================================
// import
// ============================================================================

func (c *cli) importCmd(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	consoleID := fs.Int64("console", 0, "Console id assigned to every row")
	regionID := fs.Int64("region", 0, "Region id assigned to every row (default: inferred from the rating code)")
	preview := fs.Bool("preview", false, "Report what would be imported without writing")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no input files")
	}

	files, err := collectImportFiles(fs.Args())
	if err != nil {
		return err
	}

	var opts core.ImportOptions
	if *consoleID > 0 {
		opts.ConsoleID = consoleID
	}
	if *regionID > 0 {
		opts.RegionID = regionID
	}

	var failed int
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if *preview {
			resp, err := c.svc.PreviewImport(ctx, string(raw), opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if *asJSON {
				if err := c.printJSON(resp); err != nil {
					return err
				}
				continue
			}
			s := resp.Summary
			fmt.Fprintf(c.out, "%s: %d rows, %d new, %d existing, %d invalid, %d repeated in file\n",
				path, s.TotalRows, s.NewRows, s.ExistingRows, s.ErrorRows, s.DuplicateInFile)
			continue
		}

		result, err := c.svc.Import(ctx, string(raw), opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		failed += len(result.Rejected)
		if *asJSON {
			if err := c.printJSON(result); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(c.out, "%s: %d accepted, %d rejected (%s)\n",
			path, len(result.Accepted), len(result.Rejected), result.Duration.Round(time.Millisecond))
		for _, rej := range result.Rejected {
			fmt.Fprintf(c.out, "  line %d %q: %s\n", rej.Line, rej.Title, rej.Reason)
		}
		if result.Aborted != "" {
			return fmt.Errorf("%s: import aborted: %s", path, result.Aborted)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d rows rejected", failed)
	}
	return nil
}

// importExts are the file extensions picked up when a directory is given.
var importExts = map[string]bool{".tsv": true, ".txt": true, ".tab": true}

// collectImportFiles expands directories into their import files, sorted by
// name. Files named explicitly are taken whatever their extension.
func collectImportFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !importExts[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, entry.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, errors.New("no import files found")
	}
	return files, nil
}

// ============================================================================
// rate
// ============================================================================

func (c *cli) rateCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rate <record|latest|history|seed> ...")
	}

	fs := pflag.NewFlagSet("rate "+args[0], pflag.ContinueOnError)
	at := fs.String("at", "", "Observation time (RFC 3339 or YYYY-MM-DD); default now")
	limit := fs.Int("limit", 20, "Number of history records")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	rest := fs.Args()

	switch args[0] {
	case "record":
		if len(rest) != 2 {
			return errors.New("usage: rate record CURRENCY RATE [--at TIME]")
		}
		rate, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return core.ValidationError{Field: "rate", Value: rest[1], Message: "must be a number"}
		}
		ts, err := parseTime(*at)
		if err != nil {
			return err
		}
		rec, err := c.svc.RecordRate(ctx, rest[0], rate, ts)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s %v at %s\n", rec.Currency, rec.Rate, rec.Timestamp.Format(time.RFC3339))

	case "latest":
		if len(rest) != 1 {
			return errors.New("usage: rate latest CURRENCY")
		}
		rec, err := c.svc.LatestRate(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s %v at %s\n", rec.Currency, rec.Rate, rec.Timestamp.Format(time.RFC3339))

	case "history":
		if len(rest) != 1 {
			return errors.New("usage: rate history CURRENCY [--limit N]")
		}
		recs, err := c.svc.RateHistory(ctx, rest[0], *limit)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fmt.Fprintf(c.out, "%s\t%v\n", rec.Timestamp.Format(time.RFC3339), rec.Rate)
		}

	case "seed":
		if len(rest) != 1 {
			return errors.New("usage: rate seed FILE")
		}
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		rates, err := parseRateFile(f)
		if err != nil {
			return fmt.Errorf("%s: %w", rest[0], err)
		}
		recorded, err := c.svc.RecordRates(ctx, rates)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d rates recorded\n", len(recorded))

	default:
		return fmt.Errorf("unknown rate command %q", args[0])
	}
	return nil
}

// parseTime accepts RFC 3339 or a bare date. Blank means now.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, core.ValidationError{Field: "at", Value: s, Message: "invalid date: use RFC 3339 or YYYY-MM-DD"}
}

// parseRateFile reads "CURRENCY<TAB>RATE[<TAB>TIME]" lines. Blank lines and
// lines starting with # are skipped.
func parseRateFile(r io.Reader) ([]core.ExchangeRate, error) {
	var rates []core.ExchangeRate
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want CURRENCY<TAB>RATE", line)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, core.ValidationError{Field: "rate", Value: fields[1], Message: "must be a number"})
		}
		var ts time.Time
		if len(fields) > 2 {
			if ts, err = parseTime(fields[2]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		rates = append(rates, core.ExchangeRate{Currency: fields[0], Rate: rate, Timestamp: ts})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}

// ============================================================================
// convert / value
// ============================================================================

func (c *cli) convertCmd(ctx context.Context) error {
	n, err := c.svc.ConvertPrices(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d games updated\n", n)
	return nil
}

func (c *cli) valueCmd(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("value", pflag.ContinueOnError)
	column := fs.StringP("column", "c", "", "Price column: USD, NOK or NOK2 (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var col core.Column
	if *column != "" {
		var ok bool
		if col, ok = core.ParseColumn(*column); !ok {
			return core.ValidationError{Field: "column", Value: *column, Message: "must be USD, NOK or NOK2"}
		}
	}

	summary, err := c.svc.CollectionSummary(ctx, col)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d items, %d priced, total %s (%s)\n",
		summary.Items, summary.Priced, summary.Formatted, summary.Column)
	return nil
}
