package core

import (
	"encoding/json"
	"strings"
)

// Kind is the diagram grammar a block declares with its first keyword.
type Kind int

// Supported diagram kinds. Adding one means adding a constant and its
// keyword in kindKeywords.
const (
	KindUnknown Kind = iota
	KindGraph
	KindFlowchart
	KindSequence
	KindClass
	KindState
	KindER
	KindGantt
	KindPie
	KindGitGraph
	KindMindmap
)

var kindKeywords = []struct {
	kind    Kind
	keyword string
}{
	{KindGraph, "graph"},
	{KindFlowchart, "flowchart"},
	{KindSequence, "sequenceDiagram"},
	{KindClass, "classDiagram"},
	{KindState, "stateDiagram"}, // also stateDiagram-v2
	{KindER, "erDiagram"},
	{KindGantt, "gantt"},
	{KindPie, "pie"},
	{KindGitGraph, "gitGraph"},
	{KindMindmap, "mindmap"},
}

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindKeywords))
	for _, k := range kindKeywords {
		out = append(out, k.kind)
	}
	return out
}

// ParseKind matches token against the kind keywords by prefix, so that
// versioned variants such as "stateDiagram-v2" resolve to their base kind.
func ParseKind(token string) (Kind, bool) {
	for _, k := range kindKeywords {
		if strings.HasPrefix(token, k.keyword) {
			return k.kind, true
		}
	}
	return KindUnknown, false
}

// String returns the keyword of k.
func (k Kind) String() string {
	for _, kw := range kindKeywords {
		if kw.kind == k {
			return kw.keyword
		}
	}
	return "unknown"
}

// MarshalJSON encodes k as its keyword.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}
