package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"presentat/internal/config"
	"presentat/internal/logger"
	"presentat/internal/models"
)

const (
	defaultMarpBinary = "marp"
	// grace period for pipes held open by children of a killed marp
	processWaitDelay = 2 * time.Second
)

// Converter turns Marp Markdown into a standalone HTML document.
// Convert blocks on process I/O and must not run on the UI loop.
type Converter interface {
	Convert(ctx context.Context, markdown string) (string, error)
}

// MarpConverter shells out to the Marp CLI
type MarpConverter struct {
	path            string
	allowLocalFiles bool
	timeout         time.Duration
	logger          logger.Logger
}

// NewMarpConverter locates the marp executable. A missing tool is reported
// here rather than on every conversion.
func NewMarpConverter(cfg config.ConverterConfig, log logger.Logger) (*MarpConverter, error) {
	path, err := locateMarp(cfg.Path)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = config.DefaultConversionTimeout
	}

	log.Info("MarpConverter", "converter located", map[string]interface{}{
		"path":              path,
		"allow_local_files": cfg.AllowLocalFiles,
	})

	return &MarpConverter{
		path:            path,
		allowLocalFiles: cfg.AllowLocalFiles,
		timeout:         timeout,
		logger:          log,
	}, nil
}

func locateMarp(configured string) (string, error) {
	if configured != "" {
		info, err := os.Stat(configured)
		if err != nil || info.IsDir() {
			if err == nil {
				err = errors.New("is a directory")
			}
			return "", &models.Error{Kind: models.KindToolNotFound, Op: "locate", Path: configured, Err: err}
		}
		return configured, nil
	}

	path, err := exec.LookPath(defaultMarpBinary)
	if err != nil {
		return "", &models.Error{
			Kind: models.KindToolNotFound,
			Op:   "locate",
			Err:  errors.New("marp CLI not found, ensure it is on the PATH"),
		}
	}
	return path, nil
}

// Path returns the executable in use
func (mc *MarpConverter) Path() string {
	return mc.path
}

// Args returns the fixed argument list passed to marp
func (mc *MarpConverter) Args() []string {
	args := []string{"--html"}
	if mc.allowLocalFiles {
		args = append(args, "--allow-local-files")
	}
	return append(args, "-")
}

// Convert feeds markdown to marp on stdin and returns the HTML it prints.
// Every failure comes back as a *models.Error of kind KindConversionFailed
// (or the context error when ctx was cancelled).
func (mc *MarpConverter) Convert(ctx context.Context, markdown string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, mc.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, mc.path, mc.Args()...)
	cmd.Stdin = strings.NewReader(markdown)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = processWaitDelay

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return "", &models.Error{
					Kind: models.KindConversionFailed,
					Op:   "convert",
					Err:  fmt.Errorf("timed out after %s", mc.timeout),
				}
			}
			return "", ctxErr
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			mc.logger.Warning("MarpConverter", "marp exited with error", map[string]interface{}{
				"exit_code": exitErr.ExitCode(),
				"elapsed":   elapsed.String(),
			})
			return "", &models.Error{
				Kind:     models.KindConversionFailed,
				Op:       "convert",
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}

		return "", &models.Error{
			Kind: models.KindConversionFailed,
			Op:   "convert",
			Err:  fmt.Errorf("unexpected error: %w", err),
		}
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", &models.Error{
			Kind: models.KindConversionFailed,
			Op:   "convert",
			Err:  errors.New("converter produced invalid UTF-8 output"),
		}
	}

	mc.logger.Debug("MarpConverter", "conversion complete", map[string]interface{}{
		"input_bytes":  len(markdown),
		"output_bytes": stdout.Len(),
		"elapsed":      elapsed.String(),
	})
	return stdout.String(), nil
}

// UnavailableConverter stands in when the marp tool could not be located.
// Every conversion fails with the error found at startup.
type UnavailableConverter struct {
	Err error
}

func (uc UnavailableConverter) Convert(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", uc.Err
}
