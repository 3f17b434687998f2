// Package mcptools exposes the product search as MCP tools.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/domain/search"
	"github.com/matiasleandrokruk/shopwise/internal/version"
)

const (
	ToolSearchProducts    = "search_products"
	ToolRecommendProducts = "recommend_products"
)

// Searcher is the search surface the tools call.
type Searcher interface {
	GetProductFromSearch(ctx context.Context, text string) (<-chan search.Result[search.Item], error)
	RecommendationsOnce(ctx context.Context, text string) ([]string, error)
}

// QueryInput is the argument of both tools.
type QueryInput struct {
	Query string `json:"query" jsonschema:"free-text shopping request or product name"`
}

// SearchProductsOutput is the result of search_products.
type SearchProductsOutput struct {
	Products  []string `json:"products" jsonschema:"matching product names"`
	Questions []string `json:"questions" jsonschema:"questions that would narrow the request"`
}

// RecommendProductsOutput is the result of recommend_products.
type RecommendProductsOutput struct {
	Recommendations []string `json:"recommendations" jsonschema:"products that go well with the given product"`
}

type tools struct {
	searcher Searcher
	log      logrus.FieldLogger
}

// NewServer builds an MCP server with the search tools registered.
func NewServer(searcher Searcher, log logrus.FieldLogger) *mcp.Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &tools{searcher: searcher, log: log.WithField("component", "mcp")}

	server := mcp.NewServer(&mcp.Implementation{Name: version.Name, Version: version.Version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchProducts,
		Description: "Search products for a shopping request. Returns product names, or clarifying questions when the request is too vague.",
	}, t.searchProducts)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRecommendProducts,
		Description: "Recommend products that complement the given product.",
	}, t.recommendProducts)
	return server
}

// NewHandler serves server over the streamable HTTP transport.
func NewHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

func (t *tools) searchProducts(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, SearchProductsOutput, error) {
	out := SearchProductsOutput{Products: []string{}, Questions: []string{}}
	results, err := t.searcher.GetProductFromSearch(ctx, in.Query)
	if err != nil {
		return nil, out, err
	}
	for res := range results {
		if res.Err != nil {
			t.log.WithError(res.Err).Warn("search_products failed")
			return nil, out, res.Err
		}
		switch res.Value.Kind {
		case search.ItemProduct:
			out.Products = append(out.Products, res.Value.Text)
		case search.ItemQuestion:
			out.Questions = append(out.Questions, res.Value.Text)
		}
	}
	return nil, out, ctx.Err()
}

func (t *tools) recommendProducts(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, RecommendProductsOutput, error) {
	recs, err := t.searcher.RecommendationsOnce(ctx, in.Query)
	if err != nil {
		t.log.WithError(err).Warn("recommend_products failed")
		return nil, RecommendProductsOutput{Recommendations: []string{}}, err
	}
	return nil, RecommendProductsOutput{Recommendations: recs}, nil
}
