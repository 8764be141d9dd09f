package agent

import (
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Tool names exposed to the model. Part of the prompt contract.
const (
	ToolDSM5      = "dsm5"
	ToolSaveScore = "save_score"
)

// RetrieveInput is the dsm5 tool payload.
type RetrieveInput struct {
	Query string `json:"query" jsonschema_description:"Tóm tắt triệu chứng của người dùng để tra cứu DSM-5"`
}

// SaveScoreInput is the save_score tool payload. The username is bound
// server-side and never accepted from the model.
type SaveScoreInput struct {
	Score      string `json:"score" jsonschema_description:"Một trong: Kém, Trung bình, Bình thường, Tốt"`
	Content    string `json:"content" jsonschema_description:"Tóm tắt thông tin thu thập được"`
	TotalGuess string `json:"total_guess" jsonschema_description:"Chẩn đoán sơ bộ"`
}

// Action is the decoded intent of one tool request.
type Action interface {
	isAction()
}

// RetrieveAction asks for DSM-5 reference passages.
type RetrieveAction struct {
	Ref   string
	Query string
}

// RecordScoreAction asks to append an assessment to the ledger.
type RecordScoreAction struct {
	Ref        string
	Score      string
	Content    string
	TotalGuess string
}

func (RetrieveAction) isAction()    {}
func (RecordScoreAction) isAction() {}

// decodeAction maps a model tool request onto an Action. Unknown tool
// names are an error: the model invented a tool the prompt never
// offered.
func decodeAction(req *ai.ToolRequest) (Action, error) {
	raw, err := json.Marshal(req.Input)
	if err != nil {
		return nil, fmt.Errorf("encoding tool input for %s: %w", req.Name, err)
	}

	switch req.Name {
	case ToolDSM5:
		var in RetrieveInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decoding %s input: %w", req.Name, err)
		}
		return RetrieveAction{Ref: req.Ref, Query: in.Query}, nil
	case ToolSaveScore:
		var in SaveScoreInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decoding %s input: %w", req.Name, err)
		}
		return RecordScoreAction{Ref: req.Ref, Score: in.Score, Content: in.Content, TotalGuess: in.TotalGuess}, nil
	default:
		return nil, fmt.Errorf("model requested unknown tool %q", req.Name)
	}
}
