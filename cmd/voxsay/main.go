// Command voxsay synthesizes Japanese speech from text using a local
// VOICEVOX engine and writes the result as WAV files.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/tattn/voicevox-client/internal/config"
	"github.com/tattn/voicevox-client/internal/health"
	"github.com/tattn/voicevox-client/internal/observe"
	"github.com/tattn/voicevox-client/pkg/voicevox"
)

func main() {
	os.Exit(run())
}

// multiFlag collects repeated occurrences of a string flag.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	dictDir := flag.String("dict", "", "OpenJTalk dictionary directory (overrides config)")
	var modelPaths multiFlag
	flag.Var(&modelPaths, "model", "voice model file to load (repeatable)")
	styleID := flag.Uint("style", 0, "style id to synthesize with")
	text := flag.String("text", "", "text to synthesize; omit to read lines from -in or stdin")
	inPath := flag.String("in", "", "input file with one utterance per line (\"-\" for stdin)")
	outPath := flag.String("out", "", "output WAV path (single utterance only)")
	listSpeakers := flag.Bool("speakers", false, "list speakers of the loaded models and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath, *dictDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxsay: %v\n", err)
		return 1
	}
	modelPaths = append(multiFlag(cfg.Engine.VoiceModels), modelPaths...)

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxsay"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Engine ────────────────────────────────────────────────────────────────
	synth, err := voicevox.New(voicevox.Options{
		DictDir:       cfg.Engine.DictDir,
		CPUNumThreads: cfg.Engine.CPUNumThreads,
		RuntimePath:   cfg.Engine.RuntimePath,
	}, voicevox.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise engine", "err", err, "dict_dir", cfg.Engine.DictDir)
		return 1
	}
	defer synth.Close()

	loaded := 0
	for _, path := range modelPaths {
		start := time.Now()
		id, err := synth.LoadVoiceModel(path)
		if err != nil {
			slog.Error("failed to load voice model", "path", path, "err", err)
			return 1
		}
		metrics.ModelLoadDuration.Record(ctx, time.Since(start).Seconds())
		metrics.LoadedModels.Add(ctx, 1)
		loaded++
		slog.Info("voice model ready", "path", path, "model_id", id.String())
	}

	// ── Observability listener (optional) ─────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Observe.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		health.New(health.ModelChecker(func() int { return loaded })).Register(mux)

		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			slog.Info("observability listener up", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ── Work ──────────────────────────────────────────────────────────────────
	exit := 0
	switch {
	case *listSpeakers:
		if err := printSpeakers(synth); err != nil {
			slog.Error("failed to list speakers", "err", err)
			exit = 1
		}
	default:
		utterances, err := collectUtterances(*text, *inPath)
		if err != nil {
			slog.Error("failed to read input", "err", err)
			exit = 1
			break
		}
		if len(utterances) == 0 {
			fmt.Fprintln(os.Stderr, "voxsay: nothing to synthesize; pass -text, -in, or -speakers")
			exit = 2
			break
		}
		if *outPath != "" && len(utterances) > 1 {
			fmt.Fprintln(os.Stderr, "voxsay: -out only applies to a single utterance")
			exit = 2
			break
		}
		if err := synthesizeAll(ctx, synth, metrics, cfg, utterances, voicevox.StyleID(*styleID), *outPath); err != nil {
			exit = 1
		}
	}

	stop()
	if err := g.Wait(); err != nil {
		slog.Error("observability listener error", "err", err)
		if exit == 0 {
			exit = 1
		}
	}
	return exit
}

// loadConfig reads the YAML config when a path is given, otherwise builds a
// minimal config from the -dict flag.
func loadConfig(path, dictDir string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if dictDir != "" {
			cfg.Engine.DictDir = dictDir
		}
		return cfg, nil
	}
	if dictDir == "" {
		return nil, errors.New("either -config or -dict is required")
	}
	cfg := &config.Config{}
	cfg.Engine.DictDir = dictDir
	cfg.Output.Dir = "."
	cfg.LogLevel = config.LogInfo
	return cfg, nil
}

func collectUtterances(text, inPath string) ([]string, error) {
	if text != "" {
		return []string{text}, nil
	}
	if inPath == "" {
		return nil, nil
	}

	var r io.Reader
	if inPath == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(inPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func synthesizeAll(ctx context.Context, synth *voicevox.Synthesizer, metrics *observe.Metrics, cfg *config.Config, utterances []string, styleID voicevox.StyleID, outPath string) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		slog.Error("failed to create output directory", "dir", cfg.Output.Dir, "err", err)
		return err
	}

	styleAttr := attribute.Int("style_id", int(styleID))
	fail := func(line int, err error) error {
		metrics.SynthesisRequests.Add(ctx, 1, metric.WithAttributes(styleAttr, attribute.String("status", "error")))
		metrics.SynthesisErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", errorKind(err))))
		slog.Error("synthesis failed", "line", line, "err", err)
		return err
	}

	for i, utterance := range utterances {
		if err := ctx.Err(); err != nil {
			slog.Info("interrupted", "synthesized", i, "remaining", len(utterances)-i)
			return err
		}

		// Run the pipeline stage by stage so each stage's latency is
		// observable on its own histogram.
		start := time.Now()
		phrases, err := synth.CreateAccentPhrases(utterance)
		if err != nil {
			return fail(i+1, err)
		}
		metrics.AnalyzeDuration.Record(ctx, time.Since(start).Seconds())

		query, err := synth.ReplaceMoraData(voicevox.NewAudioQuery(phrases), styleID)
		if err != nil {
			return fail(i+1, err)
		}
		metrics.QueryDuration.Record(ctx, time.Since(start).Seconds())

		wav, err := synth.SynthesizeQuery(query, styleID, voicevox.DefaultSynthesisOptions())
		elapsed := time.Since(start)
		if err != nil {
			return fail(i+1, err)
		}
		metrics.SynthesisRequests.Add(ctx, 1, metric.WithAttributes(styleAttr, attribute.String("status", "ok")))
		metrics.SynthesisDuration.Record(ctx, elapsed.Seconds())
		metrics.SynthesizedBytes.Add(ctx, int64(len(wav)))

		path := outPath
		if path == "" {
			path = filepath.Join(cfg.Output.Dir, fmt.Sprintf("voxsay_%04d.wav", i+1))
		}
		if err := os.WriteFile(path, wav, 0o644); err != nil {
			slog.Error("failed to write output", "path", path, "err", err)
			return err
		}
		slog.Info("synthesized", "line", i+1, "path", path, "bytes", len(wav), "duration", elapsed)
	}
	return nil
}

func printSpeakers(synth *voicevox.Synthesizer) error {
	speakers, err := synth.Speakers()
	if err != nil {
		return err
	}
	if len(speakers) == 0 {
		fmt.Println("no voice models loaded")
		return nil
	}
	for _, sp := range speakers {
		fmt.Printf("%s (%s)\n", sp.Name, sp.ID)
		for _, st := range sp.Styles {
			fmt.Printf("  %4d  %s\n", st.ID, st.Name)
		}
	}
	return nil
}

// errorKind classifies an error for the synthesis-errors counter.
func errorKind(err error) string {
	var (
		styleErr    *voicevox.InvalidStyleIDError
		analysisErr *voicevox.TextAnalysisError
		synthErr    *voicevox.SynthesisError
	)
	switch {
	case errors.As(err, &styleErr):
		return "invalid_style"
	case errors.As(err, &analysisErr):
		return "analysis"
	case errors.As(err, &synthErr):
		return synthErr.Stage
	case errors.Is(err, voicevox.ErrClosed):
		return "closed"
	default:
		return "other"
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
