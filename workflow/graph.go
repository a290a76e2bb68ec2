package workflow

import (
	"encoding/json"
	"fmt"
)

// NodeKind identifies the closed set of node types a graph may contain.
type NodeKind string

const (
	KindStart     NodeKind = "start"
	KindMessage   NodeKind = "message"
	KindCondition NodeKind = "condition"
	KindBranch    NodeKind = "branch"
	KindAction    NodeKind = "action"
	KindVariable  NodeKind = "variable"
	KindLoop      NodeKind = "loop"
	KindEnd       NodeKind = "end"
)

// Operator names the comparison applied by a Condition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpMatches     Operator = "matches"
	OpExists      Operator = "exists"
)

// VariableSource names where a variable node takes its value from.
type VariableSource string

const (
	SourceStatic      VariableSource = "static"
	SourceUserInput   VariableSource = "user_input"
	SourceExtracted   VariableSource = "extracted"
	SourceAPIResponse VariableSource = "api_response"
)

// Condition is a single {field, operator, value} test against the execution
// context variables.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// MessageData carries the template text of a message node.
type MessageData struct {
	Text string `json:"text"`
}

// ConditionData carries the test of a condition node. The node's first branch
// is followed on true, the second on false.
type ConditionData struct {
	Condition Condition `json:"condition"`
}

// BranchArm is one arm of a branch node. An arm with a nil Condition only
// matches as the trailing default.
type BranchArm struct {
	Condition *Condition `json:"condition,omitempty"`
	Next      string     `json:"next"`
}

// BranchData carries the ordered arms of a branch node. The first arm whose
// condition holds is followed; when none hold, the last arm is.
type BranchData struct {
	Arms []BranchArm `json:"arms"`
}

// ActionData carries the registry action id and its (possibly templated)
// parameters.
type ActionData struct {
	ActionID string         `json:"action_id"`
	Params   map[string]any `json:"params,omitempty"`
}

// VariableData carries the assignment performed by a variable node. Value is
// used by the static source, Pattern by the extracted source, and ActionID by
// the api_response source.
type VariableData struct {
	Name     string         `json:"name"`
	Source   VariableSource `json:"source"`
	Value    any            `json:"value,omitempty"`
	Pattern  string         `json:"pattern,omitempty"`
	ActionID string         `json:"action_id,omitempty"`
}

// LoopData names the loop counter of a loop node. The node's first branch is
// the continue branch, the second the exit branch forced once the iteration
// cap is reached.
type LoopData struct {
	Name string `json:"name"`
}

// Node is one loaded graph node. Exactly one of the data fields matching Kind
// is set; the rest are nil. Next holds the successor ids: a single entry for
// linear nodes, [true, false] for condition nodes, [continue, exit] for loop
// nodes, and one entry per arm for branch nodes.
type Node struct {
	ID   string
	Kind NodeKind
	Next []string

	Message   *MessageData
	Condition *ConditionData
	Branch    *BranchData
	Action    *ActionData
	Variable  *VariableData
	Loop      *LoopData
}

// Graph is a loaded, validated workflow graph. It is read-only at execution
// time and safe for concurrent use.
type Graph struct {
	nodes map[string]*Node
	start *Node
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	if g == nil {
		return nil
	}
	return g.nodes[id]
}

// Start returns the start node, or nil when the graph has none.
func (g *Graph) Start() *Node {
	if g == nil {
		return nil
	}
	return g.start
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

type nodeWire struct {
	ID   string          `json:"id"`
	Type NodeKind        `json:"type"`
	Next json.RawMessage `json:"next,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type graphWire struct {
	Nodes []nodeWire `json:"nodes"`
}

// ParseGraph decodes a stored graph definition. Node data payloads are
// decoded into their typed form here, once, so execution never re-interprets
// raw JSON per visit. An unknown node type or malformed data payload is a
// load error; a missing start node is not (execution of such a graph yields
// an empty result).
func ParseGraph(raw []byte) (*Graph, error) {
	if len(raw) == 0 {
		return &Graph{nodes: map[string]*Node{}}, nil
	}

	var wire graphWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse workflow graph: %w", err)
	}

	g := &Graph{nodes: make(map[string]*Node, len(wire.Nodes))}

	for _, nw := range wire.Nodes {
		if nw.ID == "" {
			return nil, fmt.Errorf("parse workflow graph: node without id")
		}
		if _, dup := g.nodes[nw.ID]; dup {
			return nil, fmt.Errorf("parse workflow graph: duplicate node id %q", nw.ID)
		}

		node := &Node{ID: nw.ID, Kind: nw.Type}

		next, err := decodeNext(nw.Next)
		if err != nil {
			return nil, fmt.Errorf("parse workflow graph: node %q: %w", nw.ID, err)
		}
		node.Next = next

		if err := decodeNodeData(node, nw.Data); err != nil {
			return nil, fmt.Errorf("parse workflow graph: node %q: %w", nw.ID, err)
		}

		g.nodes[nw.ID] = node
		if node.Kind == KindStart && g.start == nil {
			g.start = node
		}
	}

	return g, nil
}

// decodeNext accepts the stored next pointer as either a single id or a list
// of ids.
func decodeNext(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, nil
		}
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("next must be a node id or list of node ids")
	}
	return many, nil
}

func decodeNodeData(node *Node, raw json.RawMessage) error {
	unmarshal := func(dst any) error {
		if len(raw) == 0 || string(raw) == "null" {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}

	switch node.Kind {
	case KindStart, KindEnd:
		return nil
	case KindMessage:
		node.Message = &MessageData{}
		return unmarshal(node.Message)
	case KindCondition:
		node.Condition = &ConditionData{}
		return unmarshal(node.Condition)
	case KindBranch:
		node.Branch = &BranchData{}
		return unmarshal(node.Branch)
	case KindAction:
		node.Action = &ActionData{}
		return unmarshal(node.Action)
	case KindVariable:
		node.Variable = &VariableData{}
		return unmarshal(node.Variable)
	case KindLoop:
		node.Loop = &LoopData{}
		return unmarshal(node.Loop)
	default:
		return fmt.Errorf("unknown node type %q", node.Kind)
	}
}
