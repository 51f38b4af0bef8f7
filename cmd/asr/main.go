// Command asr transcribes long audio files by cutting them at silences and
// sending the chunks to a speech recognition backend.
//
// Usage:
//
//	asr transcribe [-mode sliding] [-concurrency 5] [-language zh] [-json] file.mp3
//	asr info file.mp3
//	asr serve
//	asr version
//
// Configuration comes from config.yml, .env and the environment; ASR_API_KEY
// is required.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/asrkit/asr"
	"github.com/kbukum/asrkit/bootstrap"
	"github.com/kbukum/asrkit/errors"
	"github.com/kbukum/asrkit/server"
	"github.com/kbukum/asrkit/server/endpoint"
	"github.com/kbukum/asrkit/version"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitConfig   = 3
	exitInput    = 4
	exitBackend  = 5
	exitCanceled = 130
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "transcribe":
		err = transcribeCmd(ctx, args[1:], stdout, stderr)
	case "info":
		err = infoCmd(ctx, args[1:], stdout, stderr)
	case "serve":
		err = serveCmd(ctx, args[1:], stderr)
	case "version":
		fmt.Fprintln(stdout, version.GetVersionInfo().String())
		return exitOK
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "asr: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintf(stderr, "asr: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: asr <command> [flags]

commands:
  transcribe  transcribe an audio file and print the transcript
  info        print duration, format and estimated chunk count of an audio file
  serve       run the HTTP transcription service
  version     print build information

run "asr <command> -h" for command flags
`)
}

// usageError marks bad command-line input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if _, ok := err.(*usageError); ok {
		return exitUsage
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return exitFailure
	}
	switch appErr.Code {
	case errors.ErrCodeConfiguration:
		return exitConfig
	case errors.ErrCodeMedia, errors.ErrCodeInvalidInput, errors.ErrCodeMissingField, errors.ErrCodeNotFound:
		return exitInput
	case errors.ErrCodeAPI, errors.ErrCodeMaxRetriesExceeded, errors.ErrCodeTimeout, errors.ErrCodeRateLimited:
		return exitBackend
	case errors.ErrCodeCanceled:
		return exitCanceled
	default:
		return exitFailure
	}
}

// newApp loads the config and wires the transcriber into a fresh App.
func newApp(ctx context.Context, configFile string) (*application, *deps, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, nil, err
	}
	d, err := wire(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	return app, d, nil
}

func audioPathArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", &usageError{msg: fmt.Sprintf("%s: expected exactly one audio file, got %d arguments", fs.Name(), fs.NArg())}
	}
	return fs.Arg(0), nil
}

func transcribeCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to config.yml")
	mode := fs.String("mode", string(asr.DefaultMode), "context mode: none, sliding or full_serial")
	concurrency := fs.Int("concurrency", 0, "parallel backend requests (default from config, clamped to [1,20])")
	language := fs.String("language", "", "language hint passed to the backend")
	asJSON := fs.Bool("json", false, "print the result as JSON instead of Markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := audioPathArg(fs)
	if err != nil {
		return err
	}

	app, d, err := newApp(ctx, *configFile)
	if err != nil {
		return err
	}
	opts := asr.RunOptions{
		Mode:           asr.ContextMode(*mode),
		MaxConcurrency: *concurrency,
		Language:       *language,
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		res, err := d.transcriber.Transcribe(ctx, path, opts)
		if err != nil {
			return err
		}
		if *asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		_, err = fmt.Fprintln(stdout, asr.FormatResult(res))
		return err
	})
}

func infoCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to config.yml")
	asJSON := fs.Bool("json", false, "print the result as JSON instead of Markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := audioPathArg(fs)
	if err != nil {
		return err
	}

	app, d, err := newApp(ctx, *configFile)
	if err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		info, err := d.transcriber.AudioInfo(ctx, path)
		if err != nil {
			return err
		}
		maxChunk := app.Cfg.ASR.MaxChunkDuration
		if *asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(endpoint.AudioInfoResponse{
				AudioInfo:        info,
				EstimatedChunks:  d.transcriber.EstimateChunks(info.DurationSeconds),
				MaxChunkDuration: maxChunk,
			})
		}
		_, err = fmt.Fprintln(stdout, asr.FormatAudioInfo(info, maxChunk))
		return err
	})
}

func serveCmd(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to config.yml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, d, err := newApp(ctx, *configFile)
	if err != nil {
		return err
	}
	cfg := app.Cfg

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware(d.metrics)
	srv.RegisterSystemEndpoints(cfg.Name, settings(cfg), app.HealthCheckers()...)
	srv.RegisterTranscription(d.transcriber, cfg.ASR.MaxChunkDuration)
	if err := app.Register(bootstrap.NewComponent("http", srv.Start, srv.Stop)); err != nil {
		return err
	}
	return app.Run(ctx)
}

// settings is the non-secret configuration exposed on /info.
func settings(cfg *AppConfig) map[string]any {
	return map[string]any{
		"environment":        cfg.Environment,
		"provider":           cfg.ASR.Provider,
		"model":              cfg.ASR.Model,
		"max_chunk_duration": cfg.ASR.MaxChunkDuration,
		"max_concurrency":    cfg.ASR.MaxConcurrency,
		"context_max_chars":  cfg.ASR.ContextMaxChars,
		"request_timeout":    cfg.ASR.RequestTimeout,
		"max_retries":        cfg.ASR.MaxRetries,
		"default_mode":       asr.DefaultMode,
		"redis_cache":        cfg.Redis.Enabled,
		"allow_local_paths":  cfg.Server.AllowLocalPaths,
	}
}
