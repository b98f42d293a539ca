package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gamma-omg/docqa/docstore"
	"github.com/gamma-omg/docqa/qa"
)

type answerer interface {
	Answer(ctx context.Context, ownerID string, req qa.Request) qa.Response
	Search(ctx context.Context, ownerID, query string, maxResults int, threshold float64, filter docstore.Filter) ([]docstore.SearchResult, error)
}

type statsProvider interface {
	Stats(ctx context.Context, ownerID string) (docstore.Stats, error)
}

// NewRagServer exposes the question answering pipeline over MCP with three
// tools: ask, search and stats.
func NewRagServer(svc answerer, stats statsProvider, ownerID string, log *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("DocQA", "0.1.0", server.WithToolCapabilities(false))

	ask := mcp.NewTool("ask",
		mcp.WithDescription("Ask a question and get an AI generated answer grounded in the indexed documents"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer")),
		mcp.WithString("tags",
			mcp.Description("Comma separated list of tags to restrict the search to")),
		mcp.WithNumber("max_chunks",
			mcp.Description("Maximum number of context chunks to retrieve")),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity score for a chunk to be used as context")))
	srv.AddTool(ask, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp := svc.Answer(ctx, ownerID, qa.Request{
			Question:  question,
			Tags:      splitTags(request.GetString("tags", "")),
			MaxChunks: request.GetInt("max_chunks", 0),
			Threshold: request.GetFloat("threshold", 0),
		})

		raw, err := json.Marshal(struct {
			Answer   string         `json:"answer"`
			Category string         `json:"category"`
			Contexts int            `json:"contexts"`
			Metadata map[string]any `json:"metadata"`
		}{
			Answer:   resp.Answer,
			Category: string(resp.Category),
			Contexts: len(resp.Contexts),
			Metadata: resp.Metadata,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(raw)), nil
	})

	search := mcp.NewTool("search",
		mcp.WithDescription("Semantic search over the indexed documents"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query")),
		mcp.WithString("tags",
			mcp.Description("Comma separated list of tags to restrict the search to")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return")),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity score for a result to be returned")))
	srv.AddTool(search, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := svc.Search(ctx, ownerID, query,
			request.GetInt("max_results", 0),
			request.GetFloat("threshold", 0),
			docstore.Filter{Tags: splitTags(request.GetString("tags", ""))})
		if err != nil {
			log.Warn("search failed", "query", query, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response strings.Builder
		for _, r := range results {
			raw, err := json.Marshal(struct {
				Score    float64 `json:"score"`
				Document string  `json:"document"`
				Content  string  `json:"content"`
			}{
				Score:    r.Score,
				Document: r.DocumentName,
				Content:  r.Content,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			fmt.Fprintf(&response, "%s\n", raw)
		}

		return mcp.NewToolResultText(response.String()), nil
	})

	statsTool := mcp.NewTool("stats",
		mcp.WithDescription("Statistics about the indexed document corpus"))
	srv.AddTool(statsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s, err := stats.Stats(ctx, ownerID)
		if err != nil {
			log.Warn("stats failed", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(struct {
			TotalDocuments int            `json:"total_documents"`
			TotalChunks    int            `json:"total_chunks"`
			TotalSize      int            `json:"total_size"`
			DocumentTypes  map[string]int `json:"document_types"`
			Tags           map[string]int `json:"tags"`
		}{
			TotalDocuments: s.TotalDocuments,
			TotalChunks:    s.TotalChunks,
			TotalSize:      s.TotalSize,
			DocumentTypes:  s.DocumentTypes,
			Tags:           s.Tags,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(raw)), nil
	})

	return srv
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}

	return tags
}
