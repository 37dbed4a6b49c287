// Command foursight runs the innovation pipeline for a topic and writes
// the resulting report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/kataras/golog"
	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"

	"github.com/foursight-ai/foursight/config"
	"github.com/foursight-ai/foursight/docstore"
	"github.com/foursight-ai/foursight/llm"
	"github.com/foursight-ai/foursight/log"
	"github.com/foursight-ai/foursight/pipeline"
	"github.com/foursight-ai/foursight/report"
	"github.com/foursight-ai/foursight/search"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).MarginTop(1)
	ideaStyle   = lipgloss.NewStyle().Bold(true)
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		topic      = flag.String("topic", "", "innovation topic to research (required)")
		bizContext = flag.String("context", "", "business context the ideas should fit")
		configPath = flag.String("config", "", "path to a YAML config file")
		reportDir  = flag.String("out", "", "report output directory (overrides config)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *topic == "" {
		flag.Usage()
		return fmt.Errorf("-topic is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *reportDir != "" {
		cfg.ReportDir = *reportDir
	}

	logger := log.NewGologLogger(golog.New())
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if *verbose {
		level = log.LevelDebug
	}
	logger.SetLevel(level)
	log.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(cfg, logger)
	if err != nil {
		return err
	}

	bar := newStageBar()
	orch := pipeline.NewPipeline(deps, pipeline.WithListener(bar))

	state := orch.Run(ctx, *topic, *bizContext, cfg.PipelineConfig())
	bar.done()

	if state.Err != nil {
		printNotices(state.Notices)
		return fmt.Errorf("run halted at %s stage: %v", state.CurrentStage, state.Err.Err)
	}

	writer := report.NewWriter(cfg.ReportDir, report.WithWriterLogger(logger))
	mdPath, htmlPath, err := writer.Write(state)
	if err != nil {
		return err
	}

	printSummary(state, mdPath, htmlPath)
	return nil
}

func buildDependencies(cfg *config.Config, logger log.Logger) (pipeline.Dependencies, error) {
	var deps pipeline.Dependencies
	deps.Logger = logger

	completer, err := llm.NewClient(cfg.OpenAI.APIKey,
		llm.WithBaseURL(cfg.OpenAI.BaseURL),
		llm.WithModel(cfg.OpenAI.Model),
		llm.WithTemperature(cfg.OpenAI.Temperature),
		llm.WithLogger(logger),
	)
	if err != nil {
		return deps, err
	}
	deps.Completer = completer

	embedder, err := llm.NewOpenAIEmbedder(cfg.OpenAI.APIKey, llm.WithEmbedderBaseURL(cfg.OpenAI.BaseURL))
	if err != nil {
		return deps, err
	}
	deps.Embedder = embedder
	deps.Store = docstore.NewHTTPStore(docstore.WithStoreLogger(logger))

	// Sources missing a credential stay nil; the research stage records
	// them as unavailable instead of failing the whole run.
	if cfg.Search.SerperAPIKey != "" {
		web, err := search.NewSerperSource(cfg.Search.SerperAPIKey)
		if err != nil {
			return deps, err
		}
		deps.Web = web
	} else {
		logger.Warn("SERPER_API_KEY not set, web source disabled")
	}
	deps.Academic = search.NewArxivSource()
	deps.Community = search.NewRedditSource(cfg.Search.RedditUserAgent)
	if cfg.Search.ProductHuntToken != "" {
		product, err := search.NewProductHuntSource(cfg.Search.ProductHuntToken)
		if err != nil {
			return deps, err
		}
		deps.Product = product
	} else {
		logger.Warn("PRODUCTHUNT_TOKEN not set, product source disabled")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable at %s, search cache disabled: %v", cfg.Redis.Addr, err)
		} else {
			deps.Web = wrapCache(deps.Web, client, logger)
			deps.Academic = wrapCache(deps.Academic, client, logger)
			deps.Community = wrapCache(deps.Community, client, logger)
			deps.Product = wrapCache(deps.Product, client, logger)
		}
	}
	return deps, nil
}

func wrapCache(src search.Source, client redis.UniversalClient, logger log.Logger) search.Source {
	if src == nil {
		return nil
	}
	return search.NewCachedSource(src, client, search.WithCacheLogger(logger))
}

// stageBar adapts a progress bar to the pipeline listener.
type stageBar struct {
	bar *progressbar.ProgressBar
}

func newStageBar() *stageBar { return &stageBar{} }

func (b *stageBar) StageStarted(name pipeline.StageName, index, total int) {
	if b.bar == nil {
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(string(name)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
		)
	}
	b.bar.Describe(string(name))
}

func (b *stageBar) StageFinished(name pipeline.StageName, s pipeline.State) {
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *stageBar) done() {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func printSummary(s pipeline.State, mdPath, htmlPath string) {
	fmt.Println(titleStyle.Render("Innovation run complete: " + s.Topic))
	fmt.Println(faintStyle.Render(fmt.Sprintf("run %s | %d results | %d documents | %d trends | %d insights",
		s.RunID, len(s.AllSearchResults()), len(s.Documents), len(s.Trends), len(s.Insights))))

	ranked := make([]pipeline.EvaluatedIdea, len(s.EvaluatedIdeas))
	copy(ranked, s.EvaluatedIdeas)
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Average > ranked[b].Average })

	fmt.Println(titleStyle.Render("Top ideas"))
	for i, ev := range ranked {
		fmt.Printf("%d. %s %s\n", i+1,
			ideaStyle.Render(ev.Idea.Title),
			scoreStyle.Render(fmt.Sprintf("%.1f/10", ev.Average)))
	}

	printNotices(s.Notices)

	fmt.Println(titleStyle.Render("Reports"))
	fmt.Println("  " + mdPath)
	fmt.Println("  " + htmlPath)
}

func printNotices(notices []string) {
	if len(notices) == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Notices"))
	for _, n := range notices {
		fmt.Println(noticeStyle.Render("  ! " + n))
	}
}
