package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"tripcast/pkg/audio"
	"tripcast/pkg/cleanup"
	"tripcast/pkg/config"
	"tripcast/pkg/db"
	"tripcast/pkg/db/maintenance"
	"tripcast/pkg/llm"
	"tripcast/pkg/logging"
	"tripcast/pkg/pipeline"
	"tripcast/pkg/probe"
	"tripcast/pkg/prompts"
	"tripcast/pkg/request"
	"tripcast/pkg/script"
	"tripcast/pkg/source"
	"tripcast/pkg/store"
	"tripcast/pkg/tracker"
	"tripcast/pkg/tts"
	"tripcast/pkg/upload"
	"tripcast/pkg/version"
	"tripcast/pkg/video"
)

const defaultConfigPath = "configs/tripcast.yaml"

// options are the command line switches of one invocation.
type options struct {
	configPath  string
	sourceURL   string
	autoYes     bool
	useLLM      bool
	audioOnly   bool
	history     int
	youtubeAuth bool
}

func main() {
	var opts options
	initConfig := flag.Bool("init-config", false, "Generate default config file and exit")
	flag.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the config file")
	flag.BoolVar(&opts.autoYes, "yes", false, "Upload without asking for confirmation")
	flag.BoolVar(&opts.useLLM, "llm", false, "Clean the report with the LLM instead of plain markup stripping")
	flag.BoolVar(&opts.audioOnly, "audio-only", false, "Stop after the audio stage and print the handoff line")
	flag.IntVar(&opts.history, "history", 0, "Print the last N runs and exit")
	flag.BoolVar(&opts.youtubeAuth, "youtube-auth", false, "Authorize YouTube uploads and store the token, then exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: tripcast [flags] [experience-url]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.sourceURL = flag.Arg(0)

	if *initConfig {
		if err := config.GenerateDefault(opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", opts.configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	appCfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := appCfg.Validate(opts.useLLM); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log, &appCfg.History)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	tts.SetLogPath(appCfg.History.TTS.Path, appCfg.History.TTS.Enabled)

	slog.Info("tripcast started", "version", version.Version, "llm", opts.useLLM, "audio_only", opts.audioOnly)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	maintOpts := maintenance.DefaultOptions(appCfg.Audio.WorkDir)
	if appCfg.DB.CacheMaxAge > 0 {
		maintOpts.CacheMaxAge = time.Duration(appCfg.DB.CacheMaxAge)
	}
	maintenance.Run(ctx, dbConn, maintOpts)

	if opts.history > 0 {
		return printHistory(ctx, st, opts.history, stdout)
	}

	if opts.youtubeAuth {
		return upload.NewYouTubeUploader(appCfg.Upload.YouTube).Authorize(ctx, os.Stderr)
	}

	tr := tracker.New()
	defer tr.LogSummary(slog.Default())

	reqClient := request.New(st, tr, request.ClientConfig{
		Retries:   appCfg.Request.Retries,
		Timeout:   time.Duration(appCfg.Request.Timeout),
		BaseDelay: time.Duration(appCfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(appCfg.Request.Backoff.MaxDelay),
	})

	promptMgr, err := prompts.NewManager(appCfg.Prompts.Dir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	var probes []probe.Probe

	var cleaner cleanup.Cleaner = cleanup.PassthroughCleaner{}
	if opts.useLLM {
		history := llm.NewHistory(appCfg.History.LLM.Path, appCfg.History.LLM.Enabled)
		llmProv, err := pipeline.NewLLMProvider(appCfg.LLM, history, reqClient, tr)
		if err != nil {
			return fmt.Errorf("failed to initialize llm: %w", err)
		}
		cleaner = cleanup.NewLLMCleaner(llmProv, promptMgr)
		probes = append(probes, probe.Probe{
			Name:     "LLM",
			Check:    llmProv.HealthCheck,
			Critical: true,
			Timeout:  15 * time.Second,
		})
	}

	ttsProv, voice, err := pipeline.NewTTSProvider(&appCfg.TTS, reqClient, tr)
	if err != nil {
		return fmt.Errorf("failed to initialize tts: %w", err)
	}
	probes = append(probes, probe.Probe{
		Name:     "TTS (" + appCfg.TTS.Engine + ")",
		Check:    probe.Settings(ttsProv),
		Critical: true,
	})

	deps := pipeline.Deps{
		Source:   source.NewClient(reqClient, appCfg.Source),
		Cleaner:  cleaner,
		Script:   script.NewBuilder(promptMgr),
		Renderer: audio.NewRenderer(ttsProv, audio.OptionsFromConfig(appCfg.Audio, voice)),
		Store:    st,
	}

	if !opts.audioOnly {
		deps.Video, err = pipeline.NewVideoBuilder(appCfg.Video)
		if err != nil {
			return err
		}
		if _, ok := deps.Video.(*video.FFmpegBuilder); ok {
			probes = append(probes, probe.Probe{
				Name:     "ffmpeg",
				Check:    probe.Binary(appCfg.Video.FFmpegPath),
				Critical: true,
			})
		}

		deps.Uploader, err = pipeline.NewUploader(appCfg.Upload)
		if err != nil {
			return err
		}
		if _, ok := deps.Uploader.(*upload.YouTubeUploader); ok {
			probes = append(probes, probe.Probe{
				Name:     "YouTube credentials",
				Check:    probe.File(appCfg.Upload.YouTube.CredentialsPath),
				Critical: true,
			})
		}

		if opts.autoYes {
			deps.Confirmer = pipeline.AutoConfirm{}
		} else {
			deps.Confirmer = pipeline.PromptConfirmer{In: stdin, Out: os.Stderr}
		}
	}

	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	orch, err := pipeline.New(deps)
	if err != nil {
		return err
	}

	if opts.audioOnly {
		handoff, err := orch.RunAudio(ctx, opts.sourceURL)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, handoff.String())
		return nil
	}

	r, err := orch.Run(ctx, opts.sourceURL)
	if err != nil {
		return err
	}
	switch {
	case r.UploadURL != "":
		fmt.Fprintln(stdout, r.UploadURL)
	default:
		fmt.Fprintln(stdout, r.VideoPath)
	}
	return nil
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func printHistory(ctx context.Context, st store.RunStore, n int, out io.Writer) error {
	runs, err := st.RecentRuns(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tKEYWORD\tTITLE\tRESULT")
	for _, r := range runs {
		result := r.UploadURL
		if result == "" {
			result = r.VideoPath
		}
		if result == "" {
			result = r.AudioPath
		}
		status := r.Status
		if r.Degraded {
			status += " (raw)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), status, r.Keyword, r.Title, result)
	}
	return w.Flush()
}
