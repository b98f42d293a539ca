package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gamma-omg/docqa/docstore"
	"github.com/gamma-omg/docqa/document"
	"github.com/gamma-omg/docqa/genai"
	"github.com/gamma-omg/docqa/qa"
	"github.com/gamma-omg/docqa/readers"
)

func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, string, error) {
	if cfg.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			cfg.OpenAI.ApiKey,
			openai.WithModel(openai.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, cfg.OpenAI.Model, nil
	}

	if cfg.Gemini != nil {
		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(cfg.Gemini.ApiKey),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Gemini.Model)))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, cfg.Gemini.Model, nil
	}

	return nil, "", errors.New("invalid embeddings provider configuration")
}

func createGenerator(cfg *Config) (qa.Generator, error) {
	if cfg.Generation == nil {
		return nil, nil
	}

	return genai.NewOpenAI(genai.OpenAIConfig{
		APIKey:      cfg.Generation.ApiKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})
}

func main() {
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the MCP server")
	flag.Parse()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	ef, modelName, err := createEmbeddingFunction(cfg)
	if err != nil {
		log.Fatal(err)
	}

	store, err := docstore.NewChromaStore(docstore.ChromaStoreConfig{
		BaseURL:          cfg.ChromaAddr,
		CollectionPrefix: cfg.Collection,
		EmbeddingFunc:    ef,
		ModelName:        modelName,
	})
	if err != nil {
		log.Fatal(err)
	}

	chunker, err := document.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal(err)
	}

	processor := document.NewProcessor(document.ProcessorConfig{
		MaxFileSize:  cfg.MaxFileSize,
		AllowedTypes: []document.Type{document.TypePDF, document.TypeTXT, document.TypeDOCX, document.TypeMD},
		Extractors: map[document.Type]readers.Extractor{
			document.TypePDF:  &readers.PdfExtractor{},
			document.TypeDOCX: &readers.DocxExtractor{},
			document.TypeTXT:  &readers.TextExtractor{},
			document.TypeMD:   &readers.TextExtractor{},
		},
		Chunker: chunker,
		Store:   store,
		Log:     logger,
	})

	generator, err := createGenerator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	svc := qa.NewService(qa.ServiceConfig{
		Searcher:  docstore.NewRanker(store, cfg.ResultCap),
		Generator: generator,
		Log:       logger,
		MaxChunks: cfg.MaxChunks,
		Threshold: cfg.SimilarityThreshold,
	})

	reg := DocRegistry{
		log:              logger,
		root:             cfg.DocRoot,
		ownerID:          cfg.Owner,
		mergeEventsDelay: time.Duration(cfg.MergeEventsMs) * time.Millisecond,
		store:            store,
		processor:        processor,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := reg.Sync(ctx); err != nil {
			log.Fatal(err)
		}

		if err := reg.Watch(ctx); err != nil {
			log.Fatal(err)
		}
	}()

	srv := NewRagServer(svc, store, cfg.Owner, logger)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
