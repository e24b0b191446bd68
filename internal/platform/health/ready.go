package health

import "context"

// NewReadyGraph returns a root node for readiness dependencies.
// Callers add named deps via ready.Add("postgres", SQLPing(pool)), etc.
func NewReadyGraph() *Node {
	return &Node{Name: "ready"}
}

// CheckAlwaysReady is for components that are ready once constructed.
func CheckAlwaysReady() Check {
	return func(context.Context) error { return nil }
}
