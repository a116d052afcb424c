// Package navigation re-roots the visible tree (drill-down) and keeps the
// ancestor stack needed to go back. It never touches collapse state, so
// expand/collapse decisions made elsewhere survive a round trip.
package navigation

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
)

var (
	// ErrAtRoot is matched by *AtRootError.
	ErrAtRoot = errors.New("already at root")
	// ErrNotDescendant is returned when drilling into a node outside the
	// current view root's subtree.
	ErrNotDescendant = errors.New("node is not below the current root")
)

// AtRootError is returned by GoBack when the ancestor stack is empty.
// It is a reportable no-op, not a failure of the session.
type AtRootError struct {
	Root identity.Key
}

func (e *AtRootError) Error() string {
	return fmt.Sprintf("go back: %s is already the root", e.Root)
}

func (e *AtRootError) Is(target error) bool { return target == ErrAtRoot }

// Keyer resolves keys to nodes and back.
type Keyer interface {
	KeyOf(n *hierarchy.Node) identity.Key
	Resolve(k identity.Key) (*hierarchy.Node, bool)
}

// Controller holds the current view root and the ancestor stack. The stack is
// always exactly the path from the absolute root to the current root,
// exclusive of the current root.
type Controller struct {
	keys    Keyer
	root    identity.Key
	current identity.Key
	stack   []identity.Key
}

// New returns a controller viewing the absolute root.
func New(absoluteRoot identity.Key, keys Keyer) *Controller {
	return &Controller{keys: keys, root: absoluteRoot, current: absoluteRoot}
}

// Current returns the key of the current view root.
func (c *Controller) Current() identity.Key { return c.current }

// Root returns the key of the absolute root.
func (c *Controller) Root() identity.Key { return c.root }

// AtRoot reports whether the view is at the absolute root.
func (c *Controller) AtRoot() bool { return len(c.stack) == 0 }

// Stack returns a copy of the ancestor stack, outermost first.
func (c *Controller) Stack() []identity.Key {
	out := make([]identity.Key, len(c.stack))
	copy(out, c.stack)
	return out
}

// DrillInto makes target the view root. Target must be a strict descendant of
// the current root; every node between them is pushed so GoBack retraces the
// path one level at a time.
func (c *Controller) DrillInto(target identity.Key) error {
	n, ok := c.keys.Resolve(target)
	if !ok {
		return &reconcile.StaleReferenceError{Key: target, Op: "drill"}
	}
	cur, ok := c.keys.Resolve(c.current)
	if !ok {
		return &reconcile.StaleReferenceError{Key: c.current, Op: "drill"}
	}
	if !hierarchy.IsAncestor(cur, n) {
		return fmt.Errorf("drill into %s (%q): %w", target, n.Name, ErrNotDescendant)
	}

	path := hierarchy.Path(n)
	start := cur.Depth()
	for _, p := range path[start : len(path)-1] {
		c.stack = append(c.stack, c.keys.KeyOf(p))
	}
	c.current = target
	debug.Log("navigation: drill into %s %q (stack depth %d)", target, n.Name, len(c.stack))
	return nil
}

// GoBack pops the ancestor stack and makes the popped node the view root.
// The popped key must be the parent of the current root in the full
// hierarchy; anything else means the stack went stale.
func (c *Controller) GoBack() (identity.Key, error) {
	if len(c.stack) == 0 {
		err := &AtRootError{Root: c.current}
		debug.Log("navigation: %v", err)
		return c.current, err
	}
	top := c.stack[len(c.stack)-1]

	cur, ok := c.keys.Resolve(c.current)
	if !ok {
		return c.current, &reconcile.StaleReferenceError{Key: c.current, Op: "go back"}
	}
	parent, ok := c.keys.Resolve(top)
	if !ok {
		return c.current, &reconcile.StaleReferenceError{Key: top, Op: "go back"}
	}
	actual := cur.Parent()
	if actual == nil {
		if abs, ok := c.keys.Resolve(c.root); ok {
			actual = hierarchy.FindParent(abs, cur)
		}
	}
	if actual != parent {
		return c.current, &reconcile.StaleReferenceError{Key: top, Op: "go back"}
	}

	c.stack = c.stack[:len(c.stack)-1]
	c.current = top
	debug.Log("navigation: back to %s %q", top, parent.Name)
	return top, nil
}

// Reset returns to the absolute root with an empty stack.
func (c *Controller) Reset() {
	c.current = c.root
	c.stack = c.stack[:0]
}

// Rebase re-anchors the controller on a new absolute root after a reload.
// The current root is kept when it still resolves; otherwise the view moves
// to the deepest surviving ancestor on the stack. The stack is then rebuilt
// from the new tree's parent links. It returns true when the view root
// changed.
func (c *Controller) Rebase(absoluteRoot identity.Key) bool {
	prev := c.current
	c.root = absoluteRoot

	candidates := append(c.Stack(), c.current)
	target := absoluteRoot
	for i := len(candidates) - 1; i >= 0; i-- {
		if n, ok := c.keys.Resolve(candidates[i]); ok && c.underRoot(n) {
			target = candidates[i]
			break
		}
	}

	c.stack = c.stack[:0]
	c.current = absoluteRoot
	if target != absoluteRoot {
		n, _ := c.keys.Resolve(target)
		path := hierarchy.Path(n)
		for _, p := range path[:len(path)-1] {
			c.stack = append(c.stack, c.keys.KeyOf(p))
		}
		c.current = target
	}
	return c.current != prev
}

func (c *Controller) underRoot(n *hierarchy.Node) bool {
	abs, ok := c.keys.Resolve(c.root)
	if !ok {
		return false
	}
	return n == abs || hierarchy.IsAncestor(abs, n)
}

// Breadcrumbs returns the names from the absolute root to the current root.
func (c *Controller) Breadcrumbs() []string {
	out := make([]string, 0, len(c.stack)+1)
	for _, k := range append(c.Stack(), c.current) {
		if n, ok := c.keys.Resolve(k); ok {
			out = append(out, n.Name)
		}
	}
	return out
}
