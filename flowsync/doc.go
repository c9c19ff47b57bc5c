// Package flowsync keeps two representations of the same workflow, a
// node-graph visual editor and a conversational chat interface, mutually
// consistent as either side (or the execution engine) mutates it.
//
// The engine is session scoped: construct one SyncEngine per editing
// session, feed it state-change events through QueueStateChange, and read
// the session state back through the accessor methods. All mutation of the
// visual/chat/hybrid state happens inside the engine; collaborators only
// emit events and observe.
package flowsync
