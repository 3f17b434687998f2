// Package a2aagent exposes the product search as an A2A agent.
package a2aagent

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/domain/search"
	"github.com/matiasleandrokruk/shopwise/internal/version"
)

// AgentCardPath is where the agent card is served.
const AgentCardPath = a2asrv.WellKnownAgentCardPath

// noResultsText answers a search that produced no items.
const noResultsText = "No products found."

var errEmptyMessage = errors.New("message has no text")

// ProductSearcher is the search operation the agent runs.
type ProductSearcher interface {
	GetProductFromSearch(ctx context.Context, text string) (<-chan search.Result[search.Item], error)
}

// Executor implements a2asrv.AgentExecutor. Each incoming text message is run
// as one product search; the reply is a single agent message with one text
// part per product name or clarifying question.
type Executor struct {
	searcher ProductSearcher
	log      logrus.FieldLogger
}

// NewExecutor creates an Executor.
func NewExecutor(searcher ProductSearcher, log logrus.FieldLogger) *Executor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{searcher: searcher, log: log.WithField("component", "a2a")}
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue) error {
	parts, err := e.run(ctx, messageText(reqCtx.Message))
	if err != nil {
		e.log.WithError(err).WithField("task_id", reqCtx.TaskID).Warn("search task failed")
		failEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, &a2a.Message{
			Role:  a2a.MessageRoleAgent,
			Parts: []a2a.Part{a2a.TextPart{Text: err.Error()}},
		})
		failEvent.Final = true
		return q.Write(ctx, failEvent)
	}
	return q.Write(ctx, a2a.NewMessage(a2a.MessageRoleAgent, parts...))
}

// Cancel implements a2asrv.AgentExecutor. Searches are short-lived, so
// cancelling only acknowledges the request.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return q.Write(ctx, event)
}

func (e *Executor) run(ctx context.Context, text string) ([]a2a.Part, error) {
	if text == "" {
		return nil, errEmptyMessage
	}
	results, err := e.searcher.GetProductFromSearch(ctx, text)
	if err != nil {
		return nil, err
	}
	var parts []a2a.Part
	for res := range results {
		if res.Err != nil {
			return nil, res.Err
		}
		parts = append(parts, a2a.TextPart{Text: res.Value.Text})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		parts = append(parts, a2a.TextPart{Text: noResultsText})
	}
	return parts, nil
}

// messageText joins the text parts of msg.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var texts []string
	for _, part := range msg.Parts {
		if text, ok := part.(a2a.TextPart); ok {
			texts = append(texts, text.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// AgentCard describes the search agent served at url.
func AgentCard(url string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:               version.Name,
		Description:        "Finds products and asks clarifying questions for a shopping request",
		URL:                url,
		Version:            version.Version,
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "product_search",
				Name:        "Product search",
				Description: "Returns product names matching a free-text request, or questions that narrow it down",
				Tags:        []string{"shopping", "search"},
				Examples:    []string{"waterproof trail running shoes under 100 dollars"},
			},
		},
	}
}

// NewJSONRPCHandler serves the executor over A2A JSON-RPC.
func NewJSONRPCHandler(exec *Executor, card *a2a.AgentCard) http.Handler {
	var opts []a2asrv.RequestHandlerOption
	if card != nil {
		opts = append(opts, a2asrv.WithExtendedAgentCard(card))
	}
	return a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(exec, opts...))
}

// NewAgentCardHandler serves card. Mount it at AgentCardPath.
func NewAgentCardHandler(card *a2a.AgentCard) http.Handler {
	return a2asrv.NewStaticAgentCardHandler(card)
}
