package hook

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopListener(data any, reply ReplyFunc) {}

func TestTopicTreeExactMatch(t *testing.T) {
	tree := newTopicTree()
	entry := &listenerEntry{pattern: "alpha::one", fn: noopListener}
	tree.add("alpha::one", entry)

	matches := tree.match("alpha::one")
	require.Len(t, matches, 1)
	assert.Same(t, entry, matches[0])

	assert.Empty(t, tree.match("alpha::two"))
}

func TestTopicTreeSingleWildcard(t *testing.T) {
	tree := newTopicTree()
	entry := &listenerEntry{pattern: "alpha::*", fn: noopListener}
	tree.add("alpha::*", entry)

	assert.Len(t, tree.match("alpha::one"), 1)
	assert.Len(t, tree.match("alpha::two"), 1)
	assert.Empty(t, tree.match("alpha::one::two"), "* must not span multiple segments")
	assert.Empty(t, tree.match("alpha"), "* requires a segment to be present")
}

func TestTopicTreeGlobstarMatchesAnyDepth(t *testing.T) {
	tree := newTopicTree()
	entry := &listenerEntry{pattern: "alpha::**", fn: noopListener}
	tree.add("alpha::**", entry)

	assert.Len(t, tree.match("alpha"), 1)
	assert.Len(t, tree.match("alpha::one"), 1)
	assert.Len(t, tree.match("alpha::one::two"), 1)
	assert.Empty(t, tree.match("beta"))
}

func TestTopicTreePrecedenceExactBeforeWildcard(t *testing.T) {
	tree := newTopicTree()
	exact := &listenerEntry{pattern: "alpha::one", fn: noopListener}
	star := &listenerEntry{pattern: "alpha::*", fn: noopListener}
	globstar := &listenerEntry{pattern: "alpha::**", fn: noopListener}
	tree.add("alpha::**", globstar)
	tree.add("alpha::*", star)
	tree.add("alpha::one", exact)

	matches := tree.match("alpha::one")
	require.Len(t, matches, 3)
	assert.Same(t, exact, matches[0])
	assert.Same(t, star, matches[1])
	assert.Same(t, globstar, matches[2])
}

func TestTopicTreeMiddleWildcardDoesNotMatchShorterTopic(t *testing.T) {
	tree := newTopicTree()
	entry := &listenerEntry{pattern: "alpha::*::c", fn: noopListener}
	tree.add("alpha::*::c", entry)

	assert.Len(t, tree.match("alpha::b::c"), 1)
	assert.Empty(t, tree.match("alpha::c"))
	assert.Empty(t, tree.match("alpha::b::d"))
}

func TestTopicTreeRemoveAndOnceEntry(t *testing.T) {
	tree := newTopicTree()
	entry := &listenerEntry{pattern: "alpha::one", fn: noopListener, once: true}
	tree.add("alpha::one", entry)
	require.Len(t, tree.match("alpha::one"), 1)

	removed := tree.removeEntry(entry)
	assert.True(t, removed)
	assert.Empty(t, tree.match("alpha::one"))
}

func TestTopicTreeEnumerate(t *testing.T) {
	tree := newTopicTree()
	tree.add("alpha::one", &listenerEntry{pattern: "alpha::one", fn: noopListener})
	tree.add("alpha::*", &listenerEntry{pattern: "alpha::*", fn: noopListener})
	tree.add("beta::**", &listenerEntry{pattern: "beta::**", fn: noopListener})

	got := tree.enumerate()
	sort.Strings(got)
	assert.Equal(t, []string{"alpha::*", "alpha::one", "beta::**"}, got)
}

func TestTopicTreeCountAtAndRemoveAll(t *testing.T) {
	tree := newTopicTree()
	assert.Equal(t, 0, tree.countAt("alpha"))
	tree.add("alpha", &listenerEntry{pattern: "alpha", fn: noopListener})
	assert.Equal(t, 1, tree.countAt("alpha"))
	tree.removeAll("alpha")
	assert.Equal(t, 0, tree.countAt("alpha"))
}
