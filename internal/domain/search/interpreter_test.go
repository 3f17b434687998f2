package search

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matiasleandrokruk/shopwise/internal/infra/llm"
)

// ============================================================================
// Feed
// ============================================================================

func TestFeed_NameTakesPriorityOverQuestions(t *testing.T) {
	t.Parallel()

	got, err := NewInterpreter().Feed(`{"Name":[{"name":"A"}],"AdditionalQuestion":[{"questionText":"Q?"}]}`)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindProducts {
		t.Fatalf("expected one products interpretation, got %+v", got)
	}
	if !reflect.DeepEqual(got[0].Products, []ProductName{{Name: "A"}}) || got[0].Questions != nil {
		t.Errorf("unexpected interpretation: %+v", got[0])
	}
}

func TestFeed_FallsBackWhenNameEmpty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		kind    Kind
	}{
		{"empty Name list", `{"Name":[],"AdditionalQuestion":[{"questionText":"Budget?"}]}`, KindQuestions},
		{"blank names", `{"Name":[{"name":"  "}],"AdditionalQuestion":[{"questionText":"Budget?"}]}`, KindQuestions},
		{"Name of wrong shape", `{"Name":42,"Recommendation":["Socks"]}`, KindRecommendations},
		{"single Name object", `{"Name":{"name":"Kettle"}}`, KindProducts},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewInterpreter().Feed(tc.payload)
			if err != nil {
				t.Fatalf("Feed: %v", err)
			}
			if len(got) != 1 || got[0].Kind != tc.kind {
				t.Fatalf("expected %s, got %+v", tc.kind, got)
			}
		})
	}
}

func TestFeed_UnknownKeysYieldNothing(t *testing.T) {
	t.Parallel()

	got, err := NewInterpreter().Feed(`{"Other":[1,2,3]}`)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no interpretation, got %+v", got)
	}
}

func TestFeed_NonObjectPayloadIsMalformed(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{`{not json`, `[1,2]`, `"text"`, `null`} {
		_, err := NewInterpreter().Feed(payload)
		var mpe *llm.MalformedPayloadError
		if !errors.As(err, &mpe) {
			t.Errorf("payload %q: expected MalformedPayloadError, got %v", payload, err)
		}
	}
}

func TestFeed_KeepsRawObject(t *testing.T) {
	t.Parallel()

	payload := `{"Recommendation":["Socks"]}`
	got, err := NewInterpreter().Feed(payload)
	if err != nil || len(got) != 1 {
		t.Fatalf("Feed: %v %+v", err, got)
	}
	if string(got[0].Raw) != payload {
		t.Errorf("raw = %s", got[0].Raw)
	}
}

// ============================================================================
// Chunk envelopes and FeedContent
// ============================================================================

func TestFeed_AccumulatesChunkContent(t *testing.T) {
	t.Parallel()

	in := NewInterpreter()
	chunks := []string{
		`{"choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"Sure! {\"Na"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"me\":[{\"name\":\"Desk {lamp}\"}"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"]} and "}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	}
	var all []Interpretation
	for _, c := range chunks {
		got, err := in.Feed(c)
		if err != nil {
			t.Fatalf("Feed(%s): %v", c, err)
		}
		all = append(all, got...)
	}
	if len(all) != 1 {
		t.Fatalf("expected one interpretation, got %d", len(all))
	}
	if all[0].Products[0].Name != "Desk {lamp}" {
		t.Errorf("unexpected product: %+v", all[0].Products)
	}
}

func TestFeedContent_MultipleObjectsAndFences(t *testing.T) {
	t.Parallel()

	in := NewInterpreter()
	got := in.FeedContent("```json\n{\"AdditionalQuestion\":[{\"questionText\":\"Which \\\"size\\\"?\"}]}\n```\n{\"Recommendation\":[\"Laces\"]}{\"Name\":")
	if len(got) != 2 || got[0].Kind != KindQuestions || got[1].Kind != KindRecommendations {
		t.Fatalf("unexpected interpretations: %+v", got)
	}
	if got[0].Questions[0].QuestionText != `Which "size"?` {
		t.Errorf("unexpected question: %q", got[0].Questions[0].QuestionText)
	}

	rest := in.FeedContent(`[{"name":"Boot"}]}`)
	if len(rest) != 1 || rest[0].Products[0].Name != "Boot" {
		t.Fatalf("expected buffered tail to complete, got %+v", rest)
	}
}

func TestFeedContent_BrokenObjectIsSkipped(t *testing.T) {
	t.Parallel()

	in := NewInterpreter()
	if got := in.FeedContent(`{"Name":[{"name":"A"},]}`); len(got) != 0 {
		t.Fatalf("expected nothing from a broken object, got %+v", got)
	}
	got := in.FeedContent(`{"Name":[{"name":"B"}]}`)
	if len(got) != 1 || got[0].Products[0].Name != "B" {
		t.Fatalf("expected the next object to be read, got %+v", got)
	}
}

func TestFeed_ProseWithBracesAroundChunkContent(t *testing.T) {
	t.Parallel()

	in := NewInterpreter()
	chunks := []string{
		`{"choices":[{"index":0,"delta":{"content":"Sure, here is the {JSON} you asked for: "}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"{\"Name\":[{\"name\":\"Widget\"}]}"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":" Hope that helps {see {\"Recommendation\":[\"Case\"]}}"}}]}`,
	}
	var all []Interpretation
	for _, c := range chunks {
		got, err := in.Feed(c)
		if err != nil {
			t.Fatalf("Feed(%s): %v", c, err)
		}
		all = append(all, got...)
	}
	if len(all) != 2 {
		t.Fatalf("expected two interpretations, got %+v", all)
	}
	if all[0].Kind != KindProducts || all[0].Products[0].Name != "Widget" {
		t.Errorf("unexpected first interpretation: %+v", all[0])
	}
	if all[1].Kind != KindRecommendations || all[1].Recommendations[0] != "Case" {
		t.Errorf("unexpected second interpretation: %+v", all[1])
	}
}
