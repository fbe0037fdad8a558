// kgate-mcp exposes the knowledge gate operations as MCP tools over stdio.
//
// Every tool answers with the JSON operation envelope, so MCP clients see
// the same status/data shape the CLI prints.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/portal-dtwins/knowledge-gate/internal/config"
	"github.com/portal-dtwins/knowledge-gate/internal/embedding"
	"github.com/portal-dtwins/knowledge-gate/internal/gate"
	"github.com/portal-dtwins/knowledge-gate/internal/goldindex"
	"github.com/portal-dtwins/knowledge-gate/internal/store"
)

var (
	kg  *gate.Gate
	emb *embedding.Client
)

func main() {
	// Load .env - try the executable's parent dir (repo root), then exe dir,
	// then cwd
	envPaths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		envPaths = append([]string{
			filepath.Join(filepath.Dir(exeDir), ".env"),
			filepath.Join(exeDir, ".env"),
		}, envPaths...)
	}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	cfg := config.FromEnv()
	gold, err := goldindex.Load(cfg.GoldIndexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gold index error: %v\n", err)
		os.Exit(1)
	}
	db := store.Open(cfg.DBPath, cfg.EmbeddingDim)
	defer db.Close()
	kg = gate.New(db, gold, cfg.AgentID)
	emb = embedding.NewClient(cfg.OllamaURL, cfg.EmbedModel)

	s := server.NewMCPServer(
		"kgate-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(getTool(), handleGet)
	s.AddTool(listTool(), handleList)
	s.AddTool(searchTool(), handleSearch)
	s.AddTool(keywordTool(), handleKeyword)
	s.AddTool(lookupTool(), handleLookup)
	s.AddTool(layerTool(), handleLayer)
	s.AddTool(traceTool(), handleTrace)
	s.AddTool(sourcesTool(), handleSources)
	s.AddTool(edgesTool(), handleEdges)
	s.AddTool(overviewTool(), handleOverview)
	s.AddTool(semanticTool(), handleSemantic)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// envelope serializes a gate result for the MCP client. Gate-level errors
// travel as tool errors so clients can branch on them.
func envelope(res gate.Result) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	if res.Status == gate.StatusError {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func stringArg(req mcp.CallToolRequest, key string) string {
	args, _ := req.Params.Arguments.(map[string]any)
	v, _ := args[key].(string)
	return v
}

func intArg(req mcp.CallToolRequest, key string) int {
	args, _ := req.Params.Arguments.(map[string]any)
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

func getTool() mcp.Tool {
	return mcp.NewTool("kb_get_material",
		mcp.WithDescription("Fetch one knowledge-base material by id (NODE-*, SRC-*, GRAPH-*, SCHEMA-*, GOLD-*). Analytical nodes include live backlink and edge counters."),
		mcp.WithString("material_id",
			mcp.Required(),
			mcp.Description("Material id, case-insensitive"),
		),
	)
}

func handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.GetMaterial(stringArg(req, "material_id")))
}

func listTool() mcp.Tool {
	return mcp.NewTool("kb_list_materials",
		mcp.WithDescription("List knowledge-base materials, newest first. All filters combine conjunctively."),
		mcp.WithString("category",
			mcp.Description("Category filter: RAW_SOURCES, ANALYTICAL_NODES, KNOWLEDGE_GRAPH, SCHEMAS, INDEXES, DOCUMENTATION, ARCHIVE or GOLD"),
		),
		mcp.WithString("status",
			mcp.Description("Status filter: production, immutable, draft, archived or deprecated"),
		),
		mcp.WithString("layer",
			mcp.Description("Layer filter; accepts L1/L2/L3 shorthand"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, default 50"),
		),
	)
}

func handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.ListMaterials(
		stringArg(req, "category"),
		stringArg(req, "status"),
		stringArg(req, "layer"),
		intArg(req, "limit"),
	))
}

func searchTool() mcp.Tool {
	return mcp.NewTool("kb_search",
		mcp.WithDescription("Search the knowledge base. The curated keyword index answers first; full-text ranking covers anything it misses."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query"),
		),
	)
}

func handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringArg(req, "query")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	return envelope(kg.SmartSearch(query))
}

func keywordTool() mcp.Tool {
	return mcp.NewTool("kb_search_keyword",
		mcp.WithDescription("Resolve a keyword against the precomputed keyword index. Exact hits return node ids; near-misses return partial matches."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Keyword to resolve"),
		),
	)
}

func handleKeyword(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword := stringArg(req, "keyword")
	if keyword == "" {
		return mcp.NewToolResultError("keyword is required"), nil
	}
	return envelope(kg.SearchByKeyword(keyword))
}

func lookupTool() mcp.Tool {
	return mcp.NewTool("kb_quick_lookup",
		mcp.WithDescription("Resolve a material id to its file path through the gold index, without touching the database."),
		mcp.WithString("material_id",
			mcp.Required(),
			mcp.Description("Material id"),
		),
	)
}

func handleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.QuickLookup(stringArg(req, "material_id")))
}

func layerTool() mcp.Tool {
	return mcp.NewTool("kb_layer_nodes",
		mcp.WithDescription("List the node ids of one knowledge layer."),
		mcp.WithString("layer",
			mcp.Required(),
			mcp.Description("Layer label or L1/L2/L3 shorthand"),
		),
	)
}

func handleLayer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.LayerNodes(stringArg(req, "layer")))
}

func traceTool() mcp.Tool {
	return mcp.NewTool("kb_source_chain",
		mcp.WithDescription("Show every analytical node derived from one raw source, with backlink totals."),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Raw source material id (SRC-*)"),
		),
	)
}

func handleTrace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.GetSourceChain(stringArg(req, "source_id")))
}

func sourcesTool() mcp.Tool {
	return mcp.NewTool("kb_node_sources",
		mcp.WithDescription("Show the raw sources backing one analytical node, with mapping type and confidence."),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Analytical node id (NODE-*)"),
		),
	)
}

func handleSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.GetNodeSources(stringArg(req, "node_id")))
}

func edgesTool() mcp.Tool {
	return mcp.NewTool("kb_node_edges",
		mcp.WithDescription("Show the typed, weighted edges around one node."),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Node id"),
		),
		mcp.WithString("direction",
			mcp.Description("incoming, outgoing or both (default both)"),
		),
	)
}

func handleEdges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.GetNodeEdges(stringArg(req, "node_id"), stringArg(req, "direction")))
}

func overviewTool() mcp.Tool {
	return mcp.NewTool("kb_overview",
		mcp.WithDescription("Knowledge-base overview: per-category statistics, graph counters, critical path and top backlinked nodes."),
	)
}

func handleOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelope(kg.GetOverview())
}

func semanticTool() mcp.Tool {
	return mcp.NewTool("kb_semantic_search",
		mcp.WithDescription("Semantic search: embed the query via Ollama and rank materials by vector similarity. The embedding model's dimension must match the store's."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query to embed"),
		),
		mcp.WithString("category",
			mcp.Description("Restrict results to one category"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, default 10"),
		),
	)
}

func handleSemantic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringArg(req, "query")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	vector, err := emb.Embed(query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embed query: %v", err)), nil
	}
	return envelope(kg.SemanticSearch(vector, stringArg(req, "category"), intArg(req, "limit")))
}
