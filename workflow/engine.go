package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helpmesh/helpmesh/action"
	"github.com/helpmesh/helpmesh/internal/util"
	"github.com/helpmesh/helpmesh/logging"
	"github.com/helpmesh/helpmesh/metrics"
)

const (
	// maxNodeVisits bounds total traversal so malformed or cyclic graphs
	// still terminate.
	maxNodeVisits = 100

	// maxLoopIterations bounds how many times a loop node takes its continue
	// branch before the exit branch is forced.
	maxLoopIterations = 5
)

// Input carries everything one execution needs. Variables seeds the execution
// context and is not mutated.
type Input struct {
	// UserMessage is the raw latest user message, exposed to the graph as the
	// user_message variable and consumed by user_input / extracted variable
	// nodes.
	UserMessage string

	// Variables are pre-seeded context variables (conversation metadata,
	// routing hints).
	Variables map[string]any

	// Call scopes action dispatches made by action nodes.
	Call action.CallContext
}

// Output is the result of one graph execution.
type Output struct {
	// Response is all message-node text and action result messages,
	// newline-joined.
	Response string

	// Variables is the final execution context, including action_<id>_result
	// and action_<id>_success entries.
	Variables map[string]any

	// ActionsExecuted lists the registry action ids dispatched, in order.
	ActionsExecuted []string

	// NextNodeID is the id the walk stopped in front of: the pending node
	// when the visit cap hit, the dangling reference on an unknown id, and
	// empty when the flow ended normally.
	NextNodeID string
}

// EngineOptions configure an Engine.
type EngineOptions struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Engine executes workflow graphs. It is stateless between calls; all
// per-execution state lives in a context created and discarded inside
// Execute, so a single Engine is safe for concurrent use.
type Engine struct {
	registry *action.Registry
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// NewEngine creates an Engine dispatching action nodes through registry.
func NewEngine(registry *action.Registry, optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{registry: registry, logger: opts.Logger, metrics: opts.Metrics}
}

// execState is the per-execution context, created fresh per call.
type execState struct {
	vars     map[string]any
	loops    map[string]int
	response []string
	actions  []string
	visits   int
}

// Execute walks the graph from the start node's successor. It never returns
// an error: authoring problems stop the walk gracefully with whatever output
// accumulated, and action failures surface in the context variables.
func (e *Engine) Execute(ctx context.Context, g *Graph, in Input) *Output {
	started := time.Now()

	st := &execState{
		vars:  make(map[string]any, len(in.Variables)+1),
		loops: map[string]int{},
	}
	for k, v := range in.Variables {
		st.vars[k] = v
	}
	st.vars["user_message"] = in.UserMessage

	out := &Output{}

	start := g.Start()
	if start == nil || g.Len() == 0 {
		e.observe("empty", st, started)
		out.Variables = st.vars
		return out
	}

	currentID := firstNext(start)
	for currentID != "" {
		if st.visits >= maxNodeVisits {
			e.logger.Warn("workflow visit cap reached, stopping traversal", "next_node", currentID, "visits", st.visits)
			out.NextNodeID = currentID
			break
		}

		node := g.Node(currentID)
		if node == nil {
			e.logger.Warn("workflow references unknown node, stopping traversal", "node", currentID)
			out.NextNodeID = currentID
			break
		}
		st.visits++

		if node.Kind == KindEnd {
			break
		}
		currentID = e.step(ctx, node, st, in)
	}

	out.Response = strings.Join(st.response, "\n")
	out.Variables = st.vars
	out.ActionsExecuted = st.actions

	e.observe("completed", st, started)
	return out
}

// step executes one node and returns the id of the next node, or "" to stop.
func (e *Engine) step(ctx context.Context, node *Node, st *execState, in Input) string {
	switch node.Kind {
	case KindStart:
		// A start node reached mid-graph behaves as a pass-through.
		return firstNext(node)

	case KindMessage:
		if node.Message != nil && node.Message.Text != "" {
			st.response = append(st.response, util.Interpolate(node.Message.Text, st.vars))
		}
		return firstNext(node)

	case KindCondition:
		if node.Condition != nil && e.evaluate(node.Condition.Condition, st.vars) {
			return branchAt(node, 0)
		}
		return branchAt(node, 1)

	case KindBranch:
		return e.pickArm(node, st.vars)

	case KindAction:
		e.runAction(ctx, node, st, in)
		return firstNext(node)

	case KindVariable:
		e.assignVariable(node, st, in)
		return firstNext(node)

	case KindLoop:
		st.loops[node.ID]++
		if st.loops[node.ID] > maxLoopIterations {
			return branchAt(node, 1) // exit
		}
		return branchAt(node, 0) // continue

	default:
		e.logger.Warn("workflow node kind not executable, stopping traversal", "node", node.ID, "kind", string(node.Kind))
		return ""
	}
}

// pickArm follows the first branch arm whose condition holds, else the last
// arm. An arm without a condition only matches as that trailing default.
func (e *Engine) pickArm(node *Node, vars map[string]any) string {
	if node.Branch == nil || len(node.Branch.Arms) == 0 {
		return firstNext(node)
	}
	arms := node.Branch.Arms
	for _, arm := range arms {
		if arm.Condition != nil && e.evaluate(*arm.Condition, vars) {
			return arm.Next
		}
	}
	// No condition held: the last listed arm is the default.
	return arms[len(arms)-1].Next
}

func (e *Engine) runAction(ctx context.Context, node *Node, st *execState, in Input) {
	data := node.Action
	if data == nil || data.ActionID == "" {
		e.logger.Warn("workflow action node without action id", "node", node.ID)
		return
	}

	params := make(map[string]any, len(data.Params))
	for k, v := range data.Params {
		if s, ok := v.(string); ok {
			params[k] = util.Interpolate(s, st.vars)
			continue
		}
		params[k] = v
	}

	result := e.registry.ExecuteAction(ctx, data.ActionID, params, in.Call)

	st.vars[fmt.Sprintf("action_%s_result", data.ActionID)] = result.Data
	st.vars[fmt.Sprintf("action_%s_success", data.ActionID)] = result.Success
	st.actions = append(st.actions, data.ActionID)

	if result.Message != "" {
		st.response = append(st.response, result.Message)
	}
}

func (e *Engine) assignVariable(node *Node, st *execState, in Input) {
	data := node.Variable
	if data == nil || data.Name == "" {
		e.logger.Warn("workflow variable node without name", "node", node.ID)
		return
	}

	switch data.Source {
	case SourceStatic:
		st.vars[data.Name] = data.Value

	case SourceUserInput:
		st.vars[data.Name] = in.UserMessage

	case SourceExtracted:
		re, err := regexp.Compile(data.Pattern)
		if err != nil {
			e.logger.Warn("workflow variable node has invalid pattern", "node", node.ID, "pattern", data.Pattern, "error", err.Error())
			st.vars[data.Name] = nil
			return
		}
		m := re.FindStringSubmatch(in.UserMessage)
		switch {
		case len(m) > 1:
			st.vars[data.Name] = m[1]
		case len(m) == 1:
			st.vars[data.Name] = m[0]
		default:
			st.vars[data.Name] = nil
		}

	case SourceAPIResponse:
		st.vars[data.Name] = st.vars[fmt.Sprintf("action_%s_result", data.ActionID)]

	default:
		e.logger.Warn("workflow variable node has unknown source", "node", node.ID, "source", string(data.Source))
	}
}

// evaluate applies one condition against the context variables. Anything that
// cannot be evaluated (missing field, non-numeric comparison, invalid regex,
// unknown operator) is false.
func (e *Engine) evaluate(c Condition, vars map[string]any) bool {
	val, present := vars[c.Field]

	switch c.Operator {
	case OpExists:
		return present && val != nil && stringify(val) != ""

	case OpEquals:
		return present && stringify(val) == c.Value

	case OpContains:
		return present && strings.Contains(strings.ToLower(stringify(val)), strings.ToLower(c.Value))

	case OpGreaterThan, OpLessThan:
		left, okL := toFloat(val)
		right, okR := toFloat(c.Value)
		if !present || !okL || !okR {
			return false
		}
		if c.Operator == OpGreaterThan {
			return left > right
		}
		return left < right

	case OpMatches:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			e.logger.Warn("workflow condition has invalid pattern", "field", c.Field, "pattern", c.Value, "error", err.Error())
			return false
		}
		return present && re.MatchString(stringify(val))

	default:
		e.logger.Warn("workflow condition has unknown operator", "operator", string(c.Operator))
		return false
	}
}

func (e *Engine) observe(status string, st *execState, started time.Time) {
	if tl, ok := e.logger.(*logging.TurnLogger); ok {
		tl.LogWorkflowExecution("", st.visits, time.Since(started), nil)
	}
	if e.metrics != nil {
		e.metrics.WorkflowExecutions.WithLabelValues(status).Inc()
		e.metrics.WorkflowNodeVisits.Observe(float64(st.visits))
	}
}

func firstNext(node *Node) string {
	if len(node.Next) == 0 {
		return ""
	}
	return node.Next[0]
}

func branchAt(node *Node, i int) string {
	if i < len(node.Next) {
		return node.Next[i]
	}
	return ""
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
