// Package download fetches source videos with yt-dlp.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/internal/workspace"
	"github.com/keagan/shotlist/pkg/util"
)

const (
	// DefaultFormat prefers a merged best-video+best-audio MP4
	DefaultFormat  = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	DefaultTimeout = 5 * time.Minute

	videoFileName  = "source.mp4"
	cookieFileName = "cookies.txt"
)

// Options configures the downloader
type Options struct {
	BinaryPath string
	Format     string
	Timeout    time.Duration
}

// Result describes a downloaded video
type Result struct {
	Path  string
	Title string
}

// Downloader runs yt-dlp to fetch one video into a workspace
type Downloader struct {
	logger zerolog.Logger
	opts   Options
}

// New creates a downloader
func New(logger zerolog.Logger, opts Options) *Downloader {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "yt-dlp"
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Downloader{
		logger: logger.With().Str("component", "download").Logger(),
		opts:   opts,
	}
}

// Fetch downloads source.URL into ws and returns the video path
func (d *Downloader) Fetch(ctx context.Context, source models.VideoSource, ws *workspace.Workspace) (*Result, error) {
	if strings.TrimSpace(source.URL) == "" {
		return nil, failure.Acquisition(failure.ReasonUnreachable, "download video", errors.New("empty url"))
	}

	output := ws.Path(videoFileName)
	args := []string{
		"-f", d.opts.Format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--print", "after_move:title",
		"-o", output,
	}

	cookieArgs, err := d.cookieArgs(source.Cookie, ws)
	if err != nil {
		return nil, failure.Acquisition(failure.ReasonInternal, "download video", err)
	}
	args = append(args, cookieArgs...)
	args = append(args, "--", source.URL)

	d.logger.Info().
		Str("url", source.URL).
		Bool("cookies", source.Cookie != "").
		Dur("timeout", d.opts.Timeout).
		Msg("downloading video")

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.opts.BinaryPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		d.logger.Debug().Str("stderr", stderr.String()).Msg("yt-dlp failed")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, failure.Acquisition(reasonForContext(ctxErr), "download video", ctxErr)
		}
		msg := lastErrorLine(stderr.String())
		return nil, failure.Acquisition(Classify(stderr.String()), "download video",
			fmt.Errorf("yt-dlp: %w: %s", err, msg))
	}

	if !util.FileExists(output) {
		return nil, failure.Acquisition(failure.ReasonInternal, "download video",
			fmt.Errorf("yt-dlp exited cleanly but %s was not written", output))
	}

	title := lastLine(stdout.String())
	if title == "" {
		title = source.URL
	}

	d.logger.Info().
		Str("path", output).
		Str("title", title).
		Dur("took", time.Since(start)).
		Msg("video downloaded")

	return &Result{Path: output, Title: title}, nil
}

// cookieArgs turns the optional session cookie into yt-dlp flags. Netscape
// cookie jars go through a file, anything else is sent as a header.
func (d *Downloader) cookieArgs(cookie string, ws *workspace.Workspace) ([]string, error) {
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return nil, nil
	}

	if isCookieJar(cookie) {
		path := ws.Path(cookieFileName)
		if err := os.WriteFile(path, []byte(cookie+"\n"), 0600); err != nil {
			return nil, fmt.Errorf("failed to write cookie file: %w", err)
		}
		return []string{"--cookies", path}, nil
	}

	return []string{"--add-header", "Cookie:" + cookie}, nil
}

func isCookieJar(cookie string) bool {
	return strings.HasPrefix(cookie, "# Netscape HTTP Cookie File") ||
		strings.HasPrefix(cookie, "# HTTP Cookie File") ||
		strings.Contains(cookie, "\t")
}

func reasonForContext(err error) failure.Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.ReasonTimeout
	}
	return failure.ReasonInternal
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func lastErrorLine(stderr string) string {
	var last string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			last = line
		}
	}
	if last == "" {
		last = lastLine(stderr)
	}
	if last == "" {
		return "no output"
	}
	return last
}
