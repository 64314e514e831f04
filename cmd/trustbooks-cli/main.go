package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"trustbooks/internal/bootstrap"
	"trustbooks/internal/extract/text"
	"trustbooks/internal/models"
	"trustbooks/internal/service"
	"trustbooks/migrations"
	"trustbooks/pkg/config"
	"trustbooks/pkg/logger"
	"trustbooks/pkg/postgres"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "trustbooks-cli",
		Usage: "Operate the TrustBooks ingestion pipeline from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override LOG_LEVEL (debug, info, warn, error)",
			},
		},
		Before: setup,
		After: func(*cli.Context) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: migrateCommand,
			},
			{
				Name:      "extract",
				Usage:     "Extract fields from a local file and print them as JSON without storing anything",
				ArgsUsage: "<file>",
				Action:    extractCommand,
				Flags: []cli.Flag{
					kindFlag(),
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Include the extracted raw text in the output",
					},
				},
			},
			{
				Name:   "ingest-dir",
				Usage:  "Upload every supported file in a directory through the pipeline",
				Action: ingestDirCommand,
				Flags: []cli.Flag{
					kindFlag(),
					&cli.StringFlag{
						Name:     "dir",
						Aliases:  []string{"d"},
						Usage:    "Directory to scan",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "cache",
						Usage: "Cache file used to skip unchanged files (default <dir>/.ingest_cache.json)",
					},
					&cli.DurationFlag{
						Name:  "drain-timeout",
						Usage: "How long to wait for background parsing before exiting",
						Value: 10 * time.Minute,
					},
				},
			},
			{
				Name:   "worker",
				Usage:  "Consume parse tasks from Redis (QUEUE_DRIVER=redis) until interrupted",
				Action: workerCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var cfg *config.Config

func setup(c *cli.Context) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logger.Level
	if c.String("log-level") != "" {
		level = c.String("log-level")
	}
	return logger.Init(level, cfg.Logger.Format)
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "Document kind: invoice or bank_statement",
		Value:   string(models.DocumentKindInvoice),
	}
}

func parseKind(c *cli.Context) (models.DocumentKind, error) {
	kind := models.DocumentKind(strings.ToLower(c.String("kind")))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q (want invoice or bank_statement)", c.String("kind"))
	}
	return kind, nil
}

func migrateCommand(c *cli.Context) error {
	log := logger.Component("migrate")

	pool, err := postgres.NewPool(c.Context, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := postgres.Migrate(c.Context, pool, migrations.FS, log)
	if err != nil {
		return err
	}
	log.Info("Migrations complete", zap.Int("applied", applied))
	return nil
}

type extractOutput struct {
	File       string         `json:"file"`
	Kind       string         `json:"kind"`
	Format     string         `json:"format"`
	Method     string         `json:"method"`
	Status     string         `json:"status"`
	Source     string         `json:"source"`
	Error      string         `json:"error,omitempty"`
	Fields     any            `json:"fields"`
	TextLength int            `json:"text_length"`
	RawText    string         `json:"raw_text,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

func extractCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("extract expects exactly one file", 2)
	}
	kind, err := parseKind(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := service.NewFileValidator(cfg.Upload.MaxFileSize).Validate(filepath.Base(path), int64(len(data)), ""); err != nil {
		return err
	}

	log := logger.Component("extract")
	ex, err := bootstrap.NewExtraction(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer ex.Close()

	out := extractOutput{File: path, Kind: string(kind), Format: text.FormatOf(path)}
	doc, err := ex.Text.Extract(c.Context, filepath.Base(path), data)
	out.Method = doc.Method
	out.TextLength = len(doc.Text)
	if c.Bool("raw") {
		out.RawText = doc.Text
	}

	switch {
	case err != nil:
		out.Status = string(models.StatusError)
		out.Error = err.Error()
	case !doc.HasContent():
		out.Status = string(models.StatusError)
		out.Error = "document has no extractable content"
	default:
		extractor, err := ex.Fields.For(kind)
		if err != nil {
			return err
		}
		res := extractor.Extract(c.Context, doc)
		out.Fields = res.Fields
		out.Source = string(res.Source)
		out.Status = string(models.StatusParsed)
		if !res.Successful {
			out.Status = string(models.StatusError)
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func ingestDirCommand(c *cli.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return err
	}
	dir := c.String("dir")
	cacheFile := c.String("cache")
	if cacheFile == "" {
		cacheFile = filepath.Join(dir, ".ingest_cache.json")
	}

	log := logger.Component("ingest-dir")
	pipeline, err := bootstrap.NewPipeline(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.Duration("drain-timeout"))
		defer cancel()
		log.Info("Waiting for background parsing to finish")
		if err := pipeline.Close(ctx); err != nil {
			log.Error("Pipeline shutdown error", zap.Error(err))
		}
		log.Info("Queue stats", zap.Any("stats", pipeline.Dispatcher.Stats()))
	}()

	cache, err := loadCache(cacheFile)
	if err != nil {
		log.Warn("Failed to load cache, will ingest all files", zap.Error(err))
		cache = &CacheData{IngestedFiles: make(map[string]IngestedFile)}
	}

	files, err := supportedFiles(dir)
	if err != nil {
		return err
	}

	var uploaded, skipped, failed int
	for _, path := range files {
		fileHash, err := calculateFileHash(path)
		if err != nil {
			log.Warn("Failed to calculate file hash, will ingest anyway", zap.String("path", path), zap.Error(err))
		}

		if cached, exists := cache.IngestedFiles[path]; exists && fileHash != "" && cached.FileHash == fileHash {
			log.Info("File already ingested, skipping",
				zap.String("path", path),
				zap.String("record_id", cached.RecordID),
				zap.Time("ingested_at", cached.IngestedAt),
			)
			skipped++
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Failed to read file", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}

		contentType := mime.TypeByExtension(filepath.Ext(path))
		resp, err := pipeline.Service.Upload(c.Context, kind, filepath.Base(path), contentType, data)
		if err != nil {
			log.Error("Failed to ingest file", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}

		log.Info("File ingested",
			zap.String("path", path),
			zap.String("record_id", resp.FileID),
			zap.String("status", resp.Status),
		)
		uploaded++
		cache.IngestedFiles[path] = IngestedFile{
			FilePath:   path,
			FileHash:   fileHash,
			RecordID:   resp.FileID,
			Kind:       string(kind),
			IngestedAt: time.Now(),
		}
	}

	if err := saveCache(cacheFile, cache); err != nil {
		log.Warn("Failed to save cache", zap.Error(err))
	}

	log.Info("Directory ingested",
		zap.Int("uploaded", uploaded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", failed)
	}
	return nil
}

// supportedFiles lists the files directly inside dir whose extension the
// validator accepts, sorted by name.
func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{}
	for _, ext := range service.AllowedExtensions() {
		allowed[ext] = true
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func workerCommand(c *cli.Context) error {
	if cfg.Queue.Driver != "redis" {
		return errors.New("worker requires QUEUE_DRIVER=redis")
	}

	log := logger.Component("worker")
	pipeline, err := bootstrap.NewPipeline(c.Context, cfg, log)
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Info("Worker running", zap.String("queue", cfg.Queue.RedisKey))
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return pipeline.Close(ctx)
}
