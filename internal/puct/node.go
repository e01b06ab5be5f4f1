package puct

import (
	"sync"
	"weak"

	"github.com/janpfeifer/ggpfgo/internal/game"
)

// Edge records everything PUCT tracks about one move available from a Node: its
// prior probability, the immediate reward observed on taking it, its visit count
// and running action-value average, and the child node it leads to (nil until a
// playout actually takes this edge for the first time).
type Edge[S game.State, M game.Move] struct {
	Prior  float32
	Reward float32
	Visits float32
	Q      float32
	Child  *Node[S, M]
}

// parentLink is the non-owning back-reference from a child Node to its parent: a
// weak pointer (so the parent's ownership of the tree, via its Edges map, remains
// the only strong reference) plus the move that was taken to reach this child.
type parentLink[S game.State, M game.Move] struct {
	parent weak.Pointer[Node[S, M]]
	move   M
}

// Node is one position in the search tree. The root is created with no parent;
// every other node is owned exclusively by the Edge in its parent that points to
// it. Edges is nil until the node has been expanded (its own state evaluated);
// a nil Edges with Terminal false means "not yet visited".
type Node[S game.State, M game.Move] struct {
	mu sync.RWMutex

	State    S
	Player   game.Player
	Terminal bool

	// Reward is the immediate reward obtained by playing the move that led to
	// this node from its parent; zero for the root.
	Reward float32

	// Visits is incremented once per playout that passes through this node on
	// its way to a deeper leaf (not incremented for the leaf of the playout
	// that created it).
	Visits float32

	Edges map[M]*Edge[S, M]

	parent *parentLink[S, M]
}

// NewRoot creates the root node of a fresh tree for state. It starts unexpanded:
// the first Playout call evaluates state directly to populate Edges.
func NewRoot[S game.State, M game.Move](state S, player game.Player, terminal bool) *Node[S, M] {
	return &Node[S, M]{State: state, Player: player, Terminal: terminal}
}

func newChild[S game.State, M game.Move](state S, player game.Player, terminal bool, reward float32) *Node[S, M] {
	return &Node[S, M]{State: state, Player: player, Terminal: terminal, Reward: reward}
}

// weakOf returns a weak pointer to n, for use as a non-owning parent back-reference.
func weakOf[S game.State, M game.Move](n *Node[S, M]) weak.Pointer[Node[S, M]] {
	return weak.Make(n)
}

// IsRoot reports whether this node has no parent.
func (n *Node[S, M]) IsRoot() bool { return n.parent == nil }

// Stats returns a read-only snapshot of this node's edges, for inspection (e.g.
// internal/treeview) without taking part in the search itself.
func (n *Node[S, M]) Stats() map[M]Edge[S, M] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[M]Edge[S, M], len(n.Edges))
	for m, e := range n.Edges {
		out[m] = *e
	}
	return out
}
