// Package puct implements PUCT (Polynomial Upper Confidence Trees): the
// selection/expansion/evaluation/backup loop shared by AlphaZero- and
// MuZero-style searches, operating on any game.Game/game.Features
// implementation.
//
// A Search owns exactly one tree, rooted at the state it was created with, and is
// meant to be driven by a single goroutine (spec: "single-threaded-per-root
// PUCT" — concurrency across many searches comes from running many Search values
// in parallel, each submitting to the same inference scheduler, not from letting
// multiple goroutines race on one tree). The per-node RWMutex exists so a
// concurrent reader (internal/treeview) can safely inspect a tree's statistics
// while a search is still running against it.
package puct

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/janpfeifer/ggpfgo/internal/game"
)

// Evaluator computes the policy and value for a state from the point of view of
// the player to move in it, matching original_source's `simulate` closing over a
// prediction channel. It is never called for a terminal state. A non-nil error
// always means the underlying inference call (internal/scheduler.Submit) failed;
// the search aborts the current Playout and returns it unchanged.
type Evaluator[S game.State, M game.Move] func(state S) (policy map[M]float32, value float32, err error)

// Search runs PUCT playouts against a single tree.
type Search[S game.State, M game.Move] struct {
	g    game.Game[S, M]
	cfg  Config
	eval Evaluator[S, M]

	root *Node[S, M]

	haveRange  bool
	minQ, maxQ float32
}

// New creates a Search rooted at rootState.
func New[S game.State, M game.Move](g game.Game[S, M], rootState S, cfg Config, eval Evaluator[S, M]) *Search[S, M] {
	root := NewRoot[S, M](rootState, g.Turn(rootState), g.IsFinished(rootState))
	return &Search[S, M]{g: g, cfg: cfg, eval: eval, root: root}
}

// Root returns the tree's root node, e.g. for statistics inspection or for
// rerooting onto a played move (see Reroot).
func (s *Search[S, M]) Root() *Node[S, M] { return s.root }

// Reroot discards everything except the subtree reachable by move from the
// current root, reusing its statistics for the next move's search the way a
// retained AlphaZero tree does. If move was never expanded at the root, it plays
// move from the root's state and starts a fresh, unexpanded tree there (callers
// should only reroot onto a move that was actually played).
func (s *Search[S, M]) Reroot(move M) error {
	edge, ok := s.root.Edges[move]
	if !ok || edge.Child == nil {
		nextState, _, nextPlayer, err := s.g.Play(s.root.State, move)
		if err != nil {
			return err
		}
		s.root = NewRoot[S, M](nextState, nextPlayer, s.g.IsFinished(nextState))
		s.haveRange, s.minQ, s.maxQ = false, 0, 0
		return nil
	}
	child := edge.Child
	child.parent = nil
	child.Reward = 0
	s.root = child
	s.haveRange, s.minQ, s.maxQ = false, 0, 0
	return nil
}

type pathStep[S game.State, M game.Move] struct {
	node *Node[S, M]
	move M
}

// Playout runs exactly one select/expand/evaluate/backup cycle.
func (s *Search[S, M]) Playout() error {
	path, leaf, err := s.selectLeaf()
	if err != nil {
		return err
	}
	var value float32
	var policy map[M]float32
	if !leaf.Terminal {
		policy, value, err = s.eval(leaf.State)
		if err != nil {
			return err
		}
	}
	s.expand(leaf, policy)
	s.backup(path, leaf, value)
	return nil
}

// Play runs n playouts and returns the move with the most visits from the root
// (spec's greedy final-selection mode). No temperature-weighted sampling is done
// here or in the Policy Drivers; a caller that wants it can sample from
// VisitPolicy.
//
// A fresh root has no edges yet, and its very first Playout only expands and
// evaluates it (selectLeaf returns an empty path, so backup has nothing to
// walk). original_source's WithMCTSPolicy::play accounts for this by running
// that seeding step once before its 0..N_PLAYOUTS loop; Play does the same here,
// so n playouts always mean n real select/expand/backup cycles against the
// root's edges, not n-1.
func (s *Search[S, M]) Play(n int) (M, error) {
	var zero M
	if s.root.Edges == nil {
		if err := s.Playout(); err != nil {
			return zero, err
		}
	}
	for i := 0; i < n; i++ {
		if err := s.Playout(); err != nil {
			return zero, err
		}
	}
	return s.BestMove(), nil
}

// BestMove returns the root edge with the most visits.
func (s *Search[S, M]) BestMove() M {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	var best M
	bestVisits := float32(-1)
	first := true
	for m, e := range s.root.Edges {
		if first || e.Visits > bestVisits {
			best, bestVisits, first = m, e.Visits, false
		}
	}
	return best
}

// VisitPolicy returns the root's visit-count-normalized policy, the standard
// training target for a policy head.
func (s *Search[S, M]) VisitPolicy() map[M]float32 {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	var total float32
	for _, e := range s.root.Edges {
		total += e.Visits
	}
	out := make(map[M]float32, len(s.root.Edges))
	if total == 0 {
		return out
	}
	for m, e := range s.root.Edges {
		out[m] = e.Visits / total
	}
	return out
}

// selectLeaf walks from the root down to the first unexpanded node, creating the
// child node for the final edge taken (via game.Play) if needed, but not yet
// evaluating it. It returns the path of (node, move) pairs taken and the leaf.
func (s *Search[S, M]) selectLeaf() ([]pathStep[S, M], *Node[S, M], error) {
	var path []pathStep[S, M]
	cur := s.root
	for {
		cur.mu.RLock()
		if cur.Terminal || cur.Edges == nil {
			cur.mu.RUnlock()
			return path, cur, nil
		}
		move := s.selectMove(cur)
		edge := cur.Edges[move]
		child := edge.Child
		cur.mu.RUnlock()

		path = append(path, pathStep[S, M]{node: cur, move: move})
		if child == nil {
			nextState, reward, nextPlayer, err := s.g.Play(cur.State, move)
			if err != nil {
				return nil, nil, err
			}
			terminal := s.g.IsFinished(nextState)
			child = newChild[S, M](nextState, nextPlayer, terminal, reward)

			cur.mu.Lock()
			if existing := cur.Edges[move].Child; existing != nil {
				child = existing
			} else {
				cur.Edges[move].Child = child
				cur.Edges[move].Reward = reward
				child.parent = &parentLink[S, M]{parent: weakOf(cur), move: move}
			}
			cur.mu.Unlock()
		}
		cur = child
	}
}

// selectMove picks the move with the highest PUCT score among node's edges.
func (s *Search[S, M]) selectMove(node *Node[S, M]) M {
	pbC := math32.Log((node.Visits+s.cfg.CPuctBase+1)/s.cfg.CPuctBase) + s.cfg.CPuctInit
	sqrtN := math32.Sqrt(node.Visits)

	var best M
	bestScore := float32(math.Inf(-1))
	first := true
	for move, edge := range node.Edges {
		prior := pbC * edge.Prior * sqrtN / (1 + edge.Visits)
		value := s.normalize(edge.Reward + s.cfg.Discount*edge.Q)
		score := prior + value
		if first || score > bestScore {
			best, bestScore, first = move, score, false
		}
	}
	return best
}

// expand populates leaf's edges from policy restricted to its legal moves. If
// leaf is the root being expanded for the first time, root exploration noise is
// mixed into the priors here, matching backpropagate's "leaf.parent.is_none()"
// check in original_source (root is the only node ever expanded without having
// been reached via a Play call).
func (s *Search[S, M]) expand(leaf *Node[S, M], policy map[M]float32) {
	if leaf.Terminal {
		return
	}
	moves := s.g.PossibleMoves(leaf.State)

	if leaf.IsRoot() && s.cfg.RootExplorationFraction > 0 && s.cfg.Rand != nil {
		noise := sampleDirichlet(s.cfg.RootDirichletAlpha, len(moves), s.cfg.Rand)
		frac := s.cfg.RootExplorationFraction
		mixed := make(map[M]float32, len(moves))
		for i, m := range moves {
			mixed[m] = frac*policy[m] + (1-frac)*noise[i]
		}
		policy = mixed
	}

	var z float32
	for _, m := range moves {
		z += policy[m]
	}
	if z == 0 {
		z = 1
	}

	leaf.mu.Lock()
	defer leaf.mu.Unlock()
	if leaf.Edges != nil {
		// Concurrent expansion already happened (only possible if callers
		// share a tree across goroutines despite the single-threaded
		// contract); keep whichever was first.
		return
	}
	leaf.Edges = make(map[M]*Edge[S, M], len(moves))
	for _, m := range moves {
		leaf.Edges[m] = &Edge[S, M]{Prior: policy[m] / z}
	}
}

// backup propagates the evaluated leaf's value back up path, updating each
// ancestor edge's visit count and running Q average, following
// original_source's backpropagate walk over weak parent references.
func (s *Search[S, M]) backup(path []pathStep[S, M], leaf *Node[S, M], leafValue float32) {
	pov := leaf.Player
	positionReward := leaf.Reward
	value := leafValue

	cur := leaf
	for cur.parent != nil {
		parent := cur.parent.parent.Value()
		move := cur.parent.move
		cur = parent

		if cur.Player == pov {
			value = positionReward + s.cfg.Discount*value
		} else {
			value = -positionReward + s.cfg.Discount*value
		}
		relativeValue := value
		if cur.Player != pov {
			relativeValue = -value
		}
		positionReward = cur.Reward

		cur.mu.Lock()
		cur.Visits++
		edge := cur.Edges[move]
		edge.Visits++
		edge.Q += (relativeValue - edge.Q) / edge.Visits
		s.updateRange(edge.Q)
		cur.mu.Unlock()
	}
}

func (s *Search[S, M]) updateRange(q float32) {
	if !s.haveRange {
		s.minQ, s.maxQ, s.haveRange = q, q, true
		return
	}
	if q < s.minQ {
		s.minQ = q
	}
	if q > s.maxQ {
		s.maxQ = q
	}
}

// normalize maps v into the tree-wide observed [minQ, maxQ] range, or returns it
// unchanged when the range is degenerate (fewer than two distinct Q values
// observed yet).
func (s *Search[S, M]) normalize(v float32) float32 {
	if !s.haveRange || s.maxQ <= s.minQ {
		return v
	}
	return (v - s.minQ) / (s.maxQ - s.minQ)
}
