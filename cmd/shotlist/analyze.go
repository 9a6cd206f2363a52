package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/shotlist/internal/config"
	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/internal/pipeline"
)

var (
	cookieFlag string
	outputFlag string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>...",
	Short: "Analyze one or more video URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		cookie, err := readCookie(cookieFlag)
		if err != nil {
			return err
		}

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		reports, failed := analyzeAll(cmd, pipe, args, cookie, cfg.Concurrency)

		out := cmd.OutOrStdout()
		if outputFlag != "" {
			f, err := os.Create(outputFlag)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := writeReports(out, reports, len(args) == 1); err != nil {
			return err
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d videos failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&cookieFlag, "cookie", "", "session cookie header value, or @file for a Netscape cookie jar")
	analyzeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "write the JSON report to a file instead of stdout")
}

// analyzeAll runs one pipeline per URL, at most limit at a time. Reports keep
// the order of urls; failed entries are nil.
func analyzeAll(cmd *cobra.Command, pipe *pipeline.Pipeline, urls []string, cookie string, limit int) ([]*models.Report, int) {
	reports := make([]*models.Report, len(urls))
	errs := make([]error, len(urls))

	g, ctx := errgroup.WithContext(cmd.Context())
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			rep, err := pipe.Analyze(ctx, models.VideoSource{URL: url, Cookie: cookie})
			if err != nil {
				errs[i] = err
				// one bad URL must not cancel the others
				return nil
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		log.Error().
			Str("url", urls[i]).
			Str("kind", failure.KindOf(err).String()).
			Err(err).
			Msg(failure.UserMessage(err))
	}
	return reports, failed
}

func writeReports(w io.Writer, reports []*models.Report, single bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if single {
		if reports[0] == nil {
			return nil
		}
		return enc.Encode(reports[0])
	}

	ok := make([]*models.Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			ok = append(ok, r)
		}
	}
	return enc.Encode(ok)
}

// readCookie resolves the --cookie flag; "@path" reads the value from a file
func readCookie(value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read cookie file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
