package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/pdfrag/internal/types"
	cfgPkg "github.com/xhad/pdfrag/pkg/config"
	"github.com/xhad/pdfrag/pkg/extractor"
	"github.com/xhad/pdfrag/pkg/ingest"
	"github.com/xhad/pdfrag/pkg/llm"
	"github.com/xhad/pdfrag/pkg/processor"
	"github.com/xhad/pdfrag/pkg/rag"
	"github.com/xhad/pdfrag/pkg/storage"
	"github.com/xhad/pdfrag/pkg/store"
	"github.com/xhad/pdfrag/server"
)

type flags struct {
	configPath string
	serve      bool
	ingestPath string
	file       string
}

func main() {
	// .env is optional; real env vars win either way.
	godotenv.Load()

	f := parseFlags()

	config, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		log.Fatal(err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(f, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP server")
	flag.StringVar(&f.ingestPath, "ingest", "", "Path to a PDF to ingest")
	flag.StringVar(&f.file, "file", "", "Scope questions to this ingested filename")
	flag.Parse()

	return f
}

type components struct {
	engine       *rag.Engine
	orchestrator *ingest.Orchestrator
	store        *store.VectorStore
}

func buildComponents(config *cfgPkg.Config, onProgress func(stage string, count int)) (*components, error) {
	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString:  config.Database.URL,
		VectorDim:   config.Database.VectorDim,
		SearchLimit: config.Database.SearchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.LLM.EmbedModel,
		BaseURL: config.LLM.BaseURL,
		Rate:    config.LLM.EmbedRate,
	})
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       config.LLM.Model,
		MaxTokens:   config.LLM.MaxTokens,
		Temperature: config.LLM.Temperature,
		BaseURL:     config.LLM.BaseURL,
	})
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	objects, err := storage.NewS3WithConfig(context.Background(), storage.S3Config{
		Bucket: config.Storage.Bucket,
		Region: config.Storage.Region,
	})
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to initialize object store: %v", err)
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    config.Processor.ChunkSize,
		ChunkOverlap: config.Processor.ChunkOverlap,
	})

	timeout := time.Duration(config.Server.TimeoutSeconds) * time.Second

	orchestrator := ingest.NewOrchestrator(objects, vectorStore, extractor.New(), &proc, embedder, ingest.OrchestratorConfig{
		KeyPrefix:  config.Storage.KeyPrefix,
		TmpDir:     config.Storage.TmpDir,
		Timeout:    timeout,
		OnProgress: onProgress,
	})

	engine := rag.NewEngine(embedder, vectorStore, chatEngine, rag.EngineConfig{
		Timeout: timeout,
	})

	return &components{
		engine:       engine,
		orchestrator: orchestrator,
		store:        vectorStore,
	}, nil
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags, config *cfgPkg.Config) error {
	var bar *progressbar.ProgressBar

	c, err := buildComponents(config, func(stage string, count int) {
		if bar != nil {
			bar.Describe(color.BlueString("Ingesting (%s: %d items)", stage, count))
			bar.Add(1)
		}
	})
	if err != nil {
		return err
	}
	defer c.store.Close()

	ctx := context.Background()

	if f.ingestPath != "" {
		filename := filepath.Base(f.ingestPath)
		color.Blue("\nIngesting %s\n", filename)

		pdf, err := os.Open(f.ingestPath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %v", f.ingestPath, err)
		}

		bar = progressbar.NewOptions(5,
			progressbar.OptionSetDescription(color.BlueString("Ingesting...")),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)

		doc, err := c.orchestrator.Ingest(ctx, pdf, filename)
		pdf.Close()
		bar.Finish()
		bar = nil

		if err != nil {
			color.Red("\nIngestion failed: %v\n", err)
			return err
		}
		color.Green("\n✓ Ingested %s (%s)\n", doc.Filename, doc.URL)

		if f.file == "" {
			f.file = doc.Filename
		}
	}

	if f.serve {
		srv := server.New(c.engine, c.orchestrator, c.store)
		addr := ":" + config.Server.Port
		log.Printf("Starting server on %s", addr)
		return http.ListenAndServe(addr, srv.Handler())
	}

	return chatLoop(ctx, c.engine, f.file)
}

func chatLoop(ctx context.Context, engine *rag.Engine, file string) error {
	if file != "" {
		color.Cyan("\nAsk questions about %s (type 'exit' to quit)", file)
	} else {
		color.Cyan("\nAsk questions about your documents (type 'exit' to quit)")
	}

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.ToLower(question) == "exit" {
			break
		}
		if question == "" {
			continue
		}

		spinner := getSpinner(" Thinking...")
		answer, err := engine.Answer(ctx, question, file)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			if types.IsServiceError(err) {
				color.Red("Service unavailable, please check configuration (%v)\n", err)
			} else {
				color.Red("Error: %v\n", err)
			}
			continue
		}

		assistantPrompt("Assistant: %s\n", answer)
	}

	return nil
}
