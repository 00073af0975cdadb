package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openptc/ptcd/internal/runtime"
	"github.com/openptc/ptcd/internal/tracing"
	"github.com/openptc/ptcd/pkg/protocol"
)

var watchSkills bool

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve execute requests over stdin/stdout (one JSON object per line)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
	cmd.Flags().BoolVar(&watchSkills, "watch-skills", false, "reload the skill registry on filesystem changes")
	return cmd
}

// runServe reads one ExecuteRequest per stdin line and writes one
// ExecuteResponse per stdout line. Logs go to stderr so the streams stay
// parseable.
func runServe() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if watchSkills {
		cfg.Skills.Watch = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry unavailable", "error", err)
		stopTracing = func(context.Context) error { return nil }
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		slog.Error("failed to start runtime", "error", err)
		os.Exit(1)
	}
	handler := rt.Handler()

	slog.Info("ptcd serving on stdio",
		"provider", rt.Provider.Name(),
		"model", cfg.LLM.Model,
		"skills_dir", cfg.Skills.Dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		cancel()
		os.Stdin.Close()
	}()

	serveLines(ctx, handler, os.Stdin, os.Stdout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	rt.Shutdown(shutdownCtx)
	if err := stopTracing(shutdownCtx); err != nil {
		slog.Warn("trace flush failed", "error", err)
	}
	slog.Info("ptcd stopped")
}

// serveLines is the stdio loop. Malformed lines get a validation error
// response rather than killing the stream.
func serveLines(ctx context.Context, handler *runtime.Handler, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req protocol.ExecuteRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp := protocol.ExecuteResponse{
				Success: false,
				Error:   protocol.Errorf(protocol.KindValidation, "malformed request: %v", err),
			}
			writeResponse(enc, resp)
			continue
		}

		writeResponse(enc, handler.Execute(ctx, req))
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		slog.Warn("stdin read failed", "error", err)
	}
}

func writeResponse(enc *json.Encoder, resp protocol.ExecuteResponse) {
	if err := enc.Encode(resp); err != nil {
		slog.Error("response write failed", "error", err)
	}
}
