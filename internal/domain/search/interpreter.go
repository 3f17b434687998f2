package search

import (
	"encoding/json"
	"strings"

	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
)

// Keys recognized in a model JSON object, in priority order.
const (
	keyName               = "Name"
	keyAdditionalQuestion = "AdditionalQuestion"
	keyRecommendation     = "Recommendation"
	keyChoices            = "choices"
)

// Interpreter converts stream payloads into Interpretations.
//
// A payload is either the model's JSON object itself or a chat completion
// chunk whose choices carry fragments of it. Fragments are accumulated until
// a top-level object is complete; text around objects is discarded.
// An Interpreter is not safe for concurrent use.
type Interpreter struct {
	pending  strings.Builder
	depth    int
	inString bool
	escaped  bool
}

// NewInterpreter returns an Interpreter with no buffered content.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Feed interprets one stream payload. A payload that is not a JSON object is
// a *llm.MalformedPayloadError. A recognized object with none of the known
// keys yields nothing.
func (in *Interpreter) Feed(payload string) ([]Interpretation, error) {
	obj, err := decodeObject([]byte(payload))
	if err != nil {
		return nil, err
	}
	if _, isChunk := obj[keyChoices]; isChunk && !hasKnownKey(obj) {
		var chunk llm.ChatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, &llm.MalformedPayloadError{Payload: payload, Err: err}
		}
		return in.FeedContent(chunk.Content()), nil
	}
	if it, ok := interpret(obj, json.RawMessage(payload)); ok {
		return []Interpretation{it}, nil
	}
	return nil, nil
}

// FeedContent appends a fragment of model output and interprets every
// top-level JSON object it completes. An incomplete object stays buffered
// for the next call. A brace-balanced span that is not a JSON object, such
// as "{this}" in prose, is dropped and its inside scanned again on its own.
func (in *Interpreter) FeedContent(fragment string) []Interpretation {
	var out []Interpretation
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		if in.depth == 0 && c != '{' {
			continue
		}
		in.pending.WriteByte(c)
		if !in.step(c) {
			continue
		}
		raw := in.pending.String()
		in.reset()
		obj, err := decodeObject([]byte(raw))
		if err != nil {
			out = append(out, NewInterpreter().FeedContent(raw[1:])...)
			continue
		}
		if it, ok := interpret(obj, json.RawMessage(raw)); ok {
			out = append(out, it)
		}
	}
	return out
}

func (in *Interpreter) reset() {
	in.pending.Reset()
	in.depth = 0
	in.inString = false
	in.escaped = false
}

// step advances the scanner over c and reports whether c closed a top-level object.
func (in *Interpreter) step(c byte) bool {
	if in.inString {
		switch {
		case in.escaped:
			in.escaped = false
		case c == '\\':
			in.escaped = true
		case c == '"':
			in.inString = false
		}
		return false
	}
	switch c {
	case '"':
		in.inString = true
	case '{':
		in.depth++
	case '}':
		in.depth--
		return in.depth == 0
	}
	return false
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &llm.MalformedPayloadError{Payload: string(raw), Err: err}
	}
	if obj == nil {
		return nil, &llm.MalformedPayloadError{Payload: string(raw), Err: errNotObject}
	}
	return obj, nil
}

func hasKnownKey(obj map[string]json.RawMessage) bool {
	for _, k := range []string{keyName, keyAdditionalQuestion, keyRecommendation} {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// interpret applies the key priority: the first key that decodes to a
// non-empty list wins and later keys are not consulted.
func interpret(obj map[string]json.RawMessage, raw json.RawMessage) (Interpretation, bool) {
	if names := decodeNames(obj[keyName]); len(names) > 0 {
		return Interpretation{Kind: KindProducts, Products: names, Raw: raw}, true
	}
	if qs := decodeQuestions(obj[keyAdditionalQuestion]); len(qs) > 0 {
		return Interpretation{Kind: KindQuestions, Questions: qs, Raw: raw}, true
	}
	if recs := decodeRecommendations(obj[keyRecommendation]); len(recs) > 0 {
		return Interpretation{Kind: KindRecommendations, Recommendations: recs, Raw: raw}, true
	}
	return Interpretation{}, false
}

// decodeNames accepts an array of {name} objects or a single one.
func decodeNames(raw json.RawMessage) []ProductName {
	if len(raw) == 0 {
		return nil
	}
	var list []ProductName
	if err := json.Unmarshal(raw, &list); err != nil {
		var one ProductName
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		list = []ProductName{one}
	}
	out := list[:0]
	for _, p := range list {
		if p.Name = strings.TrimSpace(p.Name); p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeQuestions(raw json.RawMessage) []ClarifyingQuestion {
	if len(raw) == 0 {
		return nil
	}
	var list []ClarifyingQuestion
	if err := json.Unmarshal(raw, &list); err != nil {
		var one ClarifyingQuestion
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		list = []ClarifyingQuestion{one}
	}
	out := list[:0]
	for _, q := range list {
		if q.QuestionText = strings.TrimSpace(q.QuestionText); q.QuestionText != "" {
			out = append(out, q)
		}
	}
	return out
}

func decodeRecommendations(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		list = []string{one}
	}
	out := list[:0]
	for _, r := range list {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
