package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"metiz/internal"
	"metiz/internal/catalog"
	"metiz/internal/config"
	"metiz/internal/oracle"
	"metiz/internal/pipeline"
	"metiz/internal/storage"
	"metiz/internal/util"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("metiz: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	must(err)

	switch os.Args[1] {
	case "catalog-import":
		runCatalogImport(cfg, os.Args[2:])
	case "aliases-import":
		runAliasesImport(cfg, os.Args[2:])
	case "run":
		runProcess(cfg, os.Args[2:])
	case "requests":
		runRequests(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: metiz <command> [flags]

commands:
  catalog-import  -file catalog.xlsx      загрузить каталог в базу
  aliases-import  -file aliases.xlsx      загрузить таблицу синонимов
  run             -input order.txt|-text  обработать заказ и выгрузить отчет
  requests        -limit N                показать последние запросы`)
}

func runCatalogImport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("catalog-import", flag.ExitOnError)
	file := fs.String("file", "", "путь к xlsx каталога")
	must(fs.Parse(args))
	if *file == "" {
		must(fmt.Errorf("не указан -file"))
	}

	items, err := catalog.ImportItemsXLSX(*file)
	must(err)

	db := openDB(cfg)
	defer db.Close()
	must(db.UpsertItems(context.Background(), items))
	log.Printf("каталог: загружено %d позиций", len(items))
}

func runAliasesImport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("aliases-import", flag.ExitOnError)
	file := fs.String("file", "", "путь к xlsx синонимов")
	must(fs.Parse(args))
	if *file == "" {
		must(fmt.Errorf("не указан -file"))
	}

	aliases, err := catalog.ImportAliasesXLSX(*file)
	must(err)

	db := openDB(cfg)
	defer db.Close()
	must(db.UpsertAliases(context.Background(), aliases))
	log.Printf("синонимы: загружено %d записей", len(aliases))
}

func runProcess(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	input := fs.String("input", "", "файл заказа (txt, html, xlsx, pdf)")
	text := fs.String("text", "", "текст заказа вместо файла")
	output := fs.String("output", "", "путь к xlsx отчета")
	minProb := fs.Int("min", cfg.ReportMinProbability, "минимальная вероятность для отчета")
	must(fs.Parse(args))

	var raw string
	source := internal.SourceText
	switch {
	case *text != "":
		raw = *text
	case *input != "":
		source = pipeline.DetectSource(*input)
		var err error
		raw, err = pipeline.ExtractOrder(*input, source)
		must(err)
	default:
		must(fmt.Errorf("нужен -input или -text"))
	}

	db := openDB(cfg)
	defer db.Close()

	index, err := catalog.Load(context.Background(), db)
	must(err)
	if index.Empty() {
		log.Printf("каталог пуст: будет использован внешний поиск")
	}

	var search *catalog.SearchClient
	if cfg.SearchBaseURL != "" {
		search = catalog.NewSearchClient(cfg.SearchBaseURL, cfg.SearchToken,
			time.Duration(cfg.SearchTimeoutMs)*time.Millisecond,
			util.RetryConfig{
				MaxAttempts:  cfg.SearchAttempts,
				InitialDelay: time.Duration(cfg.SearchBackoffMs) * time.Millisecond,
				MaxDelay:     10 * time.Second,
				Multiplier:   2.0,
			})
	}

	var interp pipeline.Interpreter
	if cfg.OracleAPIKey != "" {
		interp = oracle.NewClient(cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.OracleModel,
			time.Duration(cfg.OracleTimeoutMs)*time.Millisecond)
	}

	matcher := pipeline.NewMatcher(index, search, cfg.FuzzyScoreFloor, cfg.MatchOKThreshold, cfg.MatchGapThreshold)
	proc := pipeline.NewProcessor(
		pipeline.NewNormalizer(),
		pipeline.NewClassifier(cfg.ClassifyMultiOrderList, cfg.ClassifyVagueList, cfg.ClassifyMaxWords),
		interp,
		pipeline.NewAggregator(matcher),
		db,
	)

	outcome, err := proc.Process(context.Background(), raw, source)
	must(err)

	for _, r := range outcome.Results {
		sku := internal.NotFoundSKU
		if r.Chosen != nil {
			sku = r.Chosen.SKU
		}
		log.Printf("строка %d: %s -> %s (%d%%, %s)",
			r.Line.Position, r.SearchQuery, sku, r.ProbabilityPercent, r.Status)
	}

	out := *output
	if out == "" {
		must(os.MkdirAll(cfg.OutputDir, 0o755))
		out = filepath.Join(cfg.OutputDir, fmt.Sprintf("подбор-%s.xlsx", outcome.TraceID[:8]))
	}
	rows := pipeline.BuildReportRows(outcome.Results, *minProb)
	must(pipeline.WriteReportXLSX(out, rows))
	log.Printf("отчет: %s (%d строк)", out, len(rows))
}

func runRequests(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("requests", flag.ExitOnError)
	limit := fs.Int("limit", 20, "сколько запросов показать")
	must(fs.Parse(args))

	db := openDB(cfg)
	defer db.Close()

	reqs, err := db.Requests(context.Background(), *limit)
	must(err)
	for _, r := range reqs {
		fmt.Printf("%d\t%s\t%s\t%s\t%.60s\n", r.ID, r.CreatedAt, r.Source, r.Status, r.RawText)
	}
}

func openDB(cfg config.Config) *storage.DB {
	must(os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
