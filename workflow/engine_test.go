package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmesh/helpmesh/action"
)

func mustParse(t *testing.T, raw string) *Graph {
	t.Helper()
	g, err := ParseGraph([]byte(raw))
	require.NoError(t, err)
	return g
}

func newTestEngine(t *testing.T) (*Engine, *int) {
	t.Helper()
	calls := 0
	registry := action.NewRegistry()
	registry.Register(
		action.Definition{ID: "create_ticket", Name: "Create ticket"},
		action.ExecutorFunc(func(ctx context.Context, params map[string]any, callCtx action.CallContext) (*action.Result, error) {
			calls++
			return &action.Result{
				Success: true,
				Data:    map[string]any{"ticket_id": "T-1", "subject": params["subject"]},
				Message: "Ticket created.",
			}, nil
		}),
	)
	return NewEngine(registry), &calls
}

func TestExecuteEmptyGraph(t *testing.T) {
	e, _ := newTestEngine(t)

	out := e.Execute(context.Background(), mustParse(t, `{"nodes":[]}`), Input{UserMessage: "hi"})

	assert.Empty(t, out.Response)
	assert.Empty(t, out.ActionsExecuted)
	assert.Empty(t, out.NextNodeID)
}

func TestExecuteNoStartNode(t *testing.T) {
	e, _ := newTestEngine(t)
	g := mustParse(t, `{"nodes":[{"id":"m1","type":"message","data":{"text":"hello"}}]}`)

	out := e.Execute(context.Background(), g, Input{})

	assert.Empty(t, out.Response)
}

func TestExecuteMessageInterpolation(t *testing.T) {
	e, _ := newTestEngine(t)
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"m1"},
		{"id":"m1","type":"message","next":"m2","data":{"text":"Hello {{name}}"}},
		{"id":"m2","type":"message","next":"e","data":{"text":"Bye {{missing}}"}},
		{"id":"e","type":"end"}
	]}`)

	out := e.Execute(context.Background(), g, Input{
		Variables: map[string]any{"name": "Ada"},
	})

	assert.Equal(t, "Hello Ada\nBye {{missing}}", out.Response)
	assert.Empty(t, out.NextNodeID)
}

func TestExecuteUnknownNodeStopsGracefully(t *testing.T) {
	e, _ := newTestEngine(t)
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"m1"},
		{"id":"m1","type":"message","next":"ghost","data":{"text":"partial"}}
	]}`)

	out := e.Execute(context.Background(), g, Input{})

	assert.Equal(t, "partial", out.Response)
	assert.Equal(t, "ghost", out.NextNodeID)
}

func TestExecuteTerminatesOnCycle(t *testing.T) {
	// A message cycle with no loop node must stop at the global visit cap.
	e, _ := newTestEngine(t)
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"a"},
		{"id":"a","type":"message","next":"b","data":{"text":"a"}},
		{"id":"b","type":"message","next":"a","data":{"text":"b"}}
	]}`)

	out := e.Execute(context.Background(), g, Input{})

	assert.NotEmpty(t, out.NextNodeID)
	assert.LessOrEqual(t, len(out.Response), 2*maxNodeVisits)
}

func TestExecuteLoopCap(t *testing.T) {
	// Both loop branches cycle back through a message node; the exit branch
	// leads to end. The exit must be forced after five continue iterations.
	e, _ := newTestEngine(t)
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"l"},
		{"id":"l","type":"loop","next":["m","e"],"data":{"name":"retry"}},
		{"id":"m","type":"message","next":"l","data":{"text":"again"}},
		{"id":"e","type":"end"}
	]}`)

	out := e.Execute(context.Background(), g, Input{})

	assert.Equal(t, "again\nagain\nagain\nagain\nagain", out.Response)
	assert.Empty(t, out.NextNodeID)
}

func TestExecuteConditionBranches(t *testing.T) {
	e, _ := newTestEngine(t)
	graph := `{"nodes":[
		{"id":"s","type":"start","next":"c"},
		{"id":"c","type":"condition","next":["yes","no"],"data":{"condition":{"field":"tier","operator":"equals","value":"pro"}}},
		{"id":"yes","type":"message","next":"e","data":{"text":"priority lane"}},
		{"id":"no","type":"message","next":"e","data":{"text":"standard lane"}},
		{"id":"e","type":"end"}
	]}`

	out := e.Execute(context.Background(), mustParse(t, graph), Input{
		Variables: map[string]any{"tier": "pro"},
	})
	assert.Equal(t, "priority lane", out.Response)

	out = e.Execute(context.Background(), mustParse(t, graph), Input{
		Variables: map[string]any{"tier": "free"},
	})
	assert.Equal(t, "standard lane", out.Response)
}

func TestEvaluateOperators(t *testing.T) {
	e, _ := newTestEngine(t)
	vars := map[string]any{
		"email":   "Jane@Example.COM",
		"count":   7,
		"amount":  "19.90",
		"blank":   "",
		"pattern": "order ABC-123 missing",
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals match", Condition{Field: "email", Operator: OpEquals, Value: "Jane@Example.COM"}, true},
		{"equals is case sensitive", Condition{Field: "email", Operator: OpEquals, Value: "jane@example.com"}, false},
		{"contains ignores case", Condition{Field: "email", Operator: OpContains, Value: "EXAMPLE"}, true},
		{"greater_than numeric", Condition{Field: "count", Operator: OpGreaterThan, Value: "5"}, true},
		{"greater_than false", Condition{Field: "count", Operator: OpGreaterThan, Value: "7"}, false},
		{"less_than on numeric string", Condition{Field: "amount", Operator: OpLessThan, Value: "20"}, true},
		{"less_than non-numeric", Condition{Field: "email", Operator: OpLessThan, Value: "20"}, false},
		{"matches", Condition{Field: "pattern", Operator: OpMatches, Value: `[A-Z]+-\d+`}, true},
		{"matches invalid regex is false", Condition{Field: "pattern", Operator: OpMatches, Value: `([`}, false},
		{"exists", Condition{Field: "email", Operator: OpExists}, true},
		{"exists empty string", Condition{Field: "blank", Operator: OpExists}, false},
		{"exists missing", Condition{Field: "nope", Operator: OpExists}, false},
		{"unknown operator", Condition{Field: "email", Operator: "near", Value: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.evaluate(tt.cond, vars))
		})
	}
}

func TestExecuteBranchFirstMatchWins(t *testing.T) {
	e, _ := newTestEngine(t)
	graph := `{"nodes":[
		{"id":"s","type":"start","next":"b"},
		{"id":"b","type":"branch","data":{"arms":[
			{"condition":{"field":"intent","operator":"equals","value":"refund"},"next":"r"},
			{"condition":{"field":"intent","operator":"equals","value":"order"},"next":"o"},
			{"next":"d"}
		]}},
		{"id":"r","type":"message","next":"e","data":{"text":"refund flow"}},
		{"id":"o","type":"message","next":"e","data":{"text":"order flow"}},
		{"id":"d","type":"message","next":"e","data":{"text":"default flow"}},
		{"id":"e","type":"end"}
	]}`

	out := e.Execute(context.Background(), mustParse(t, graph), Input{
		Variables: map[string]any{"intent": "order"},
	})
	assert.Equal(t, "order flow", out.Response)

	out = e.Execute(context.Background(), mustParse(t, graph), Input{
		Variables: map[string]any{"intent": "greeting"},
	})
	assert.Equal(t, "default flow", out.Response)
}

func TestExecuteActionNode(t *testing.T) {
	e, calls := newTestEngine(t)
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"a"},
		{"id":"a","type":"action","next":"m","data":{"action_id":"create_ticket","params":{"subject":"Issue from {{customer}}"}}},
		{"id":"m","type":"message","next":"e","data":{"text":"done"}},
		{"id":"e","type":"end"}
	]}`)

	out := e.Execute(context.Background(), g, Input{
		Variables: map[string]any{"customer": "Ada"},
		Call:      action.CallContext{OrganizationID: "org-1", AgentID: "ag-1", ConversationID: "conv-1"},
	})

	assert.Equal(t, 1, *calls)
	assert.Equal(t, []string{"create_ticket"}, out.ActionsExecuted)
	assert.Equal(t, "Ticket created.\ndone", out.Response)
	assert.Equal(t, true, out.Variables["action_create_ticket_success"])

	data, ok := out.Variables["action_create_ticket_result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Issue from Ada", data["subject"])
}

func TestExecuteVariableSources(t *testing.T) {
	e, _ := newTestEngine(t)
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"v1"},
		{"id":"v1","type":"variable","next":"v2","data":{"name":"greeting","source":"static","value":"hello"}},
		{"id":"v2","type":"variable","next":"v3","data":{"name":"raw","source":"user_input"}},
		{"id":"v3","type":"variable","next":"v4","data":{"name":"order_id","source":"extracted","pattern":"#(\\d+)"}},
		{"id":"v4","type":"variable","next":"e","data":{"name":"bad","source":"extracted","pattern":"(["}},
		{"id":"e","type":"end"}
	]}`)

	out := e.Execute(context.Background(), g, Input{UserMessage: "where is order #4521?"})

	assert.Equal(t, "hello", out.Variables["greeting"])
	assert.Equal(t, "where is order #4521?", out.Variables["raw"])
	assert.Equal(t, "4521", out.Variables["order_id"])
	assert.Nil(t, out.Variables["bad"])
}

func TestParseGraphRejectsUnknownKind(t *testing.T) {
	_, err := ParseGraph([]byte(`{"nodes":[{"id":"x","type":"teleport"}]}`))
	assert.Error(t, err)
}

func TestParseGraphRejectsDuplicateIDs(t *testing.T) {
	_, err := ParseGraph([]byte(`{"nodes":[{"id":"x","type":"start"},{"id":"x","type":"end"}]}`))
	assert.Error(t, err)
}

func TestParseGraphNextForms(t *testing.T) {
	g := mustParse(t, `{"nodes":[
		{"id":"s","type":"start","next":"c"},
		{"id":"c","type":"condition","next":["a","b"],"data":{"condition":{"field":"x","operator":"exists"}}},
		{"id":"a","type":"end"},
		{"id":"b","type":"end"}
	]}`)

	assert.Equal(t, []string{"c"}, g.Node("s").Next)
	assert.Equal(t, []string{"a", "b"}, g.Node("c").Next)
}

func TestParseGraphMalformedJSON(t *testing.T) {
	_, err := ParseGraph([]byte(`{"nodes": [}`))
	assert.Error(t, err)

	var jsonErr *json.SyntaxError
	assert.ErrorAs(t, err, &jsonErr)
}
