// Package agent orchestrates the counseling conversation: it rehydrates
// the user's stored history, calls the model with the dsm5 and
// save_score tools attached, dispatches any tool requests itself, and
// commits the exchange back to the history store only once the turn
// fully succeeds.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ai-vietnam/minda/internal/chatstore"
)

// fallbackReply is returned when the model produces no text at all.
const fallbackReply = "Xin lỗi, mình chưa có câu trả lời. Bạn có thể nói rõ hơn được không?"

// ModelCaller is one model round trip. Abstracted so tests can script
// responses without a live backend.
type ModelCaller interface {
	Generate(ctx context.Context, system string, msgs []*ai.Message, tools []ai.ToolRef) (*ai.ModelResponse, error)
}

// GenkitCaller calls the configured model through Genkit, returning tool
// requests to the orchestrator instead of letting Genkit resolve them.
type GenkitCaller struct {
	g           *genkit.Genkit
	model       string
	temperature float32
}

// NewGenkitCaller creates a caller for the named model.
func NewGenkitCaller(g *genkit.Genkit, model string, temperature float32) (*GenkitCaller, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GenkitCaller{g: g, model: model, temperature: temperature}, nil
}

func (c *GenkitCaller) Generate(ctx context.Context, system string, msgs []*ai.Message, tools []ai.ToolRef) (*ai.ModelResponse, error) {
	return genkit.Generate(ctx, c.g,
		ai.WithModelName(c.model),
		ai.WithSystem(system),
		ai.WithMessages(msgs...),
		ai.WithTools(tools...),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(c.temperature),
		}),
	)
}

// HistoryStore persists conversation turns. Satisfied by
// chatstore.Store.
type HistoryStore interface {
	History(username string) []chatstore.Message
	Append(username string, msgs ...chatstore.Message) error
}

// Config assembles an Agent. All fields except Retry, Limiter and
// Logger are required.
type Config struct {
	Caller   ModelCaller
	Tools    *Tools
	ToolRefs []ai.ToolRef
	Store    HistoryStore
	MaxTurns int
	Retry    RetryConfig
	Limiter  *rate.Limiter
	Logger   *slog.Logger
}

func (c Config) validate() error {
	if c.Caller == nil {
		return fmt.Errorf("model caller is required")
	}
	if c.Tools == nil {
		return fmt.Errorf("tools are required")
	}
	if c.Store == nil {
		return fmt.Errorf("history store is required")
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("max turns must be positive, got %d", c.MaxTurns)
	}
	return nil
}

// Agent drives one conversation turn at a time.
type Agent struct {
	caller   ModelCaller
	tools    *Tools
	toolRefs []ai.ToolRef
	store    HistoryStore
	maxTurns int
	retry    RetryConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New validates cfg and builds the agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Agent{
		caller:   cfg.Caller,
		tools:    cfg.Tools,
		toolRefs: cfg.ToolRefs,
		store:    cfg.Store,
		maxTurns: cfg.MaxTurns,
		retry:    cfg.Retry,
		limiter:  cfg.Limiter,
		logger:   cfg.Logger,
	}, nil
}

// Reply is the outcome of one user turn.
type Reply struct {
	Text          string
	ScoreRecorded bool
}

// Execute runs one user turn: generate, resolve tool requests, repeat
// until the model answers in text or the turn bound is hit. The user
// message and final reply are committed to history only after the whole
// turn succeeds, so a failed turn can simply be retyped.
func (a *Agent) Execute(ctx context.Context, username, userInfo, input string) (Reply, error) {
	if username == "" {
		return Reply{}, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(input) == "" {
		return Reply{}, fmt.Errorf("input is empty")
	}

	ctx = WithUsername(ctx, username)
	system := SystemPrompt(userInfo)

	msgs := a.rehydrate(username)
	msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(input)))

	scoreRecorded := false
	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := withRetry(ctx, a.retry, a.limiter, a.logger, func() (*ai.ModelResponse, error) {
			return a.caller.Generate(ctx, system, msgs, a.toolRefs)
		})
		if err != nil {
			return Reply{}, fmt.Errorf("model call: %w", err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				a.logger.Warn("model returned empty reply", "user", username)
				text = fallbackReply
			}
			if err := a.commit(username, input, text); err != nil {
				a.logger.Error("failed to persist conversation turn", "user", username, "error", err)
			}
			return Reply{Text: text, ScoreRecorded: scoreRecorded}, nil
		}

		msgs = append(msgs, resp.Message)
		toolMsg, recorded, err := a.dispatch(ctx, username, requests, scoreRecorded)
		if err != nil {
			return Reply{}, err
		}
		scoreRecorded = scoreRecorded || recorded
		msgs = append(msgs, toolMsg)
	}

	return Reply{}, fmt.Errorf("no final answer after %d tool turns", a.maxTurns)
}

// dispatch resolves every tool request of one model turn into a single
// tool-role message. Only the first save_score of a conversation turn is
// honored; duplicates report the fact back to the model instead of
// writing a second ledger row.
func (a *Agent) dispatch(ctx context.Context, username string, requests []*ai.ToolRequest, alreadyRecorded bool) (*ai.Message, bool, error) {
	recorded := false
	parts := make([]*ai.Part, 0, len(requests))

	for _, req := range requests {
		action, err := decodeAction(req)
		if err != nil {
			return nil, false, err
		}

		var output string
		switch act := action.(type) {
		case RetrieveAction:
			output, err = a.tools.Retrieve(ctx, act.Query)
			if err != nil {
				a.logger.Error("dsm5 lookup failed", "user", username, "error", err)
				output = "Không thể tra cứu tài liệu lúc này."
			}
		case RecordScoreAction:
			if alreadyRecorded || recorded {
				a.logger.Warn("duplicate save_score in one turn, dropped", "user", username)
				output = "Điểm số đã được lưu trước đó trong lượt này."
				break
			}
			output, err = a.tools.RecordScore(ctx, SaveScoreInput{
				Score:      act.Score,
				Content:    act.Content,
				TotalGuess: act.TotalGuess,
			})
			if err != nil {
				a.logger.Error("save_score failed", "user", username, "error", err)
				output = "Không thể lưu điểm số lúc này."
				break
			}
			recorded = true
		default:
			return nil, false, fmt.Errorf("unhandled action %T", action)
		}

		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}

	return ai.NewMessage(ai.RoleTool, nil, parts...), recorded, nil
}

// rehydrate converts stored history into model messages.
func (a *Agent) rehydrate(username string) []*ai.Message {
	history := a.store.History(username)
	msgs := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case chatstore.RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return msgs
}

// commit persists the completed exchange.
func (a *Agent) commit(username, input, reply string) error {
	now := time.Now().UTC()
	return a.store.Append(username,
		chatstore.Message{Role: chatstore.RoleUser, Content: input, At: now},
		chatstore.Message{Role: chatstore.RoleAssistant, Content: reply, At: now},
	)
}
