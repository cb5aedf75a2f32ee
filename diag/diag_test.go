package diag

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T, level log.Level) *bytes.Buffer {
	oldOut := log.StandardLogger().Out
	var out bytes.Buffer
	log.SetOutput(&out)

	oldLevel := log.GetLevel()
	log.SetLevel(level)

	t.Cleanup(func() {
		log.SetOutput(oldOut)
		log.SetLevel(oldLevel)
	})
	return &out
}

func TestCollector(t *testing.T) {
	t.Run("nil collector", func(t *testing.T) {
		var c *Collector
		c.Dangling("app", "-lbvserver", "missing")
		c.GrammarMiss("add lb vserver", "add lb vserver x")
		c.Merge(New(nil))

		assert.Nil(t, c.Fork())
		assert.Empty(t, c.Entries())
		assert.Equal(t, 0, c.Count(DanglingReference))
	})

	t.Run("dangling reference is logged as error", func(t *testing.T) {
		out := captureLog(t, log.DebugLevel)

		c := New(nil)
		c.Dangling("cs_vs", "action -targetLBVserver", "lb_missing")

		require.Len(t, c.Entries(), 1)
		e := c.Entries()[0]
		assert.Equal(t, DanglingReference, e.Kind)
		assert.Equal(t, "cs_vs", e.App)
		assert.Equal(t, "lb_missing", e.Target)

		assert.Equal(t, 1, strings.Count(out.String(), "level=error"))
		assert.Contains(t, out.String(), "target=lb_missing")
		assert.Contains(t, out.String(), "app=cs_vs")
	})

	t.Run("grammar miss is logged as warning", func(t *testing.T) {
		out := captureLog(t, log.DebugLevel)

		c := New(nil)
		c.GrammarMiss("add service", "add service broken")

		assert.Equal(t, 1, c.Count(GrammarMiss))
		assert.Equal(t, "add service broken", c.Entries()[0].Line)
		assert.Equal(t, 1, strings.Count(out.String(), "level=warning"))
	})

	t.Run("version fallback", func(t *testing.T) {
		c := New(nil)
		c.VersionFallback("", "13.1")
		c.VersionFallback("9.3", "13.1")

		require.Len(t, c.Entries(), 2)
		assert.Contains(t, c.Entries()[0].Message, "not detected")
		assert.Contains(t, c.Entries()[1].Message, `"9.3"`)
	})

	t.Run("fork and merge keep order", func(t *testing.T) {
		c := New(nil)
		a, b := c.Fork(), c.Fork()
		b.Dangling("b", "ref", "x")
		a.Dangling("a", "ref", "y")

		c.Merge(a)
		c.Merge(b)

		require.Len(t, c.Entries(), 2)
		assert.Equal(t, "a", c.Entries()[0].App)
		assert.Equal(t, "b", c.Entries()[1].App)
	})

	t.Run("custom logger", func(t *testing.T) {
		var out bytes.Buffer
		l := log.New()
		l.SetOutput(&out)

		c := New(l.WithField("run", "test"))
		c.DuplicateName("vs1", 2)

		assert.Contains(t, out.String(), "run=test")
		assert.Contains(t, out.String(), "kind=duplicate-name")
	})
}
