package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile             string  `yaml:"log"`
	DocRoot             string  `yaml:"doc_root"`
	Owner               string  `yaml:"owner"`
	MergeEventsMs       int     `yaml:"write_debounce_ms"`
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	MaxFileSize         int     `yaml:"max_file_size"`
	MaxChunks           int     `yaml:"max_chunks"`
	MaxResults          int     `yaml:"max_results"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	SearchThreshold     float64 `yaml:"search_threshold"`
	ResultCap           int     `yaml:"result_cap"`
	ServerAddr          string  `yaml:"server_addr"`
	ChromaAddr          string  `yaml:"chroma_addr"`
	Collection          string  `yaml:"collection"`
	OpenAI              *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"open_ai"`
	Gemini *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"gemini"`
	Generation *struct {
		Model       string  `yaml:"model"`
		ApiKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"generation"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{
		Owner:               "default",
		ChunkSize:           1000,
		ChunkOverlap:        200,
		MaxFileSize:         10 * 1024 * 1024,
		Collection:          "documents",
		SimilarityThreshold: 0.7,
		SearchThreshold:     0.6,
	}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}
