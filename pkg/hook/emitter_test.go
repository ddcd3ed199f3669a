package hook

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterOnAndDispatch(t *testing.T) {
	e := NewEmitter()
	var got any
	e.On("alpha::one", func(data any, reply ReplyFunc) { got = data })

	e.Dispatch("alpha::one", "payload", nil)
	assert.Equal(t, "payload", got)
}

func TestEmitterOnceFiresOnlyOnce(t *testing.T) {
	e := NewEmitter()
	count := 0
	e.Once("alpha::one", func(data any, reply ReplyFunc) { count++ })

	e.Dispatch("alpha::one", nil, nil)
	e.Dispatch("alpha::one", nil, nil)
	assert.Equal(t, 1, count)
}

func TestEmitterOffRemovesSpecificListener(t *testing.T) {
	e := NewEmitter()
	calledA, calledB := 0, 0
	fnA := func(data any, reply ReplyFunc) { calledA++ }
	fnB := func(data any, reply ReplyFunc) { calledB++ }
	e.On("alpha", fnA)
	e.On("alpha", fnB)

	e.Off("alpha", fnA)
	e.Dispatch("alpha", nil, nil)
	assert.Equal(t, 0, calledA)
	assert.Equal(t, 1, calledB)
}

func TestEmitterRemoveAllListeners(t *testing.T) {
	e := NewEmitter()
	called := 0
	e.On("alpha", func(data any, reply ReplyFunc) { called++ })
	e.On("alpha", func(data any, reply ReplyFunc) { called++ })

	e.RemoveAll("alpha")
	e.Dispatch("alpha", nil, nil)
	assert.Equal(t, 0, called)
}

func TestEmitterMetaEventsOnFirstAddAndEachRemove(t *testing.T) {
	e := NewEmitter()
	var mu sync.Mutex
	var metaTopics []string
	e.notify = func(topic string, data any) {
		mu.Lock()
		metaTopics = append(metaTopics, topic)
		mu.Unlock()
	}

	fnA := func(data any, reply ReplyFunc) {}
	fnB := func(data any, reply ReplyFunc) {}
	e.On("alpha", fnA) // first listener -> listener-added
	e.On("alpha", fnB) // second listener, no meta event

	e.Off("alpha", fnA) // listener-removed
	e.Off("alpha", fnB) // listener-removed

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, metaTopics, 3)
	assert.Equal(t, metaListenerAdded, metaTopics[0])
	assert.Equal(t, metaListenerRemoved, metaTopics[1])
	assert.Equal(t, metaListenerRemoved, metaTopics[2])
}

func TestEmitterOnAnyObservesEveryTopic(t *testing.T) {
	e := NewEmitter()
	var seen []string
	e.OnAny(func(topic string, data any) { seen = append(seen, topic) })
	e.On("alpha", func(data any, reply ReplyFunc) {})

	e.Dispatch("alpha", nil, nil)
	e.Dispatch("beta", nil, nil) // no listener, onAny still fires

	assert.Equal(t, []string{"alpha", "beta"}, seen)
}

func TestEmitterEnumerateAndMatches(t *testing.T) {
	e := NewEmitter()
	e.On("alpha::*", func(data any, reply ReplyFunc) {})

	assert.True(t, e.Matches("alpha::one"))
	assert.False(t, e.Matches("beta::one"))
	assert.Equal(t, []string{"alpha::*"}, e.Enumerate())
}
