package walk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdvalidate/mdbook-validator/book"
	"github.com/mdvalidate/mdbook-validator/models"
	"github.com/mdvalidate/mdbook-validator/walk"
)

type recordingDispatcher struct {
	calls []string
	err   error
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, chapterName string, b models.Block) error {
	r.calls = append(r.calls, chapterName+"/"+b.Validator)
	return r.err
}

func TestWalker_DepthFirstPreOrder(t *testing.T) {
	d := &recordingDispatcher{}
	w := walk.New(d)

	tree := []book.Item{
		{Chapter: &book.Chapter{
			Name:    "parent",
			Content: "```sql validator=sqlite\nSELECT 1;\n```\n",
			SubItems: []book.Item{
				{Chapter: &book.Chapter{Name: "child", Content: "```sql validator=sqlite\nSELECT 2;\n```\n"}},
			},
		}},
	}

	require.NoError(t, w.Run(context.Background(), tree))
	assert.Equal(t, []string{"parent/sqlite", "child/sqlite"}, d.calls)
}

func TestWalker_MutuallyExclusiveCaughtBeforeDispatch(t *testing.T) {
	d := &recordingDispatcher{}
	w := walk.New(d)

	tree := []book.Item{
		{Chapter: &book.Chapter{Name: "ch", Content: "```sql validator=sqlite skip hidden\nSELECT 1;\n```\n"}},
	}

	err := w.Run(context.Background(), tree)
	require.Error(t, err)
	merr, ok := models.AsError(err)
	require.True(t, ok, "error must wrap a *models.Error")
	assert.Equal(t, models.KindMutuallyExclusive, merr.Kind)
	assert.Empty(t, d.calls, "dispatcher must not run when E011 fires")
}

func TestWalker_RewritesAfterDispatch(t *testing.T) {
	d := &recordingDispatcher{}
	w := walk.New(d)

	ch := &book.Chapter{Name: "ch", Content: "```sql validator=sqlite\n<!--ASSERT\nrows >= 1\n-->\nSELECT 1;\n```\n"}
	require.NoError(t, w.Run(context.Background(), []book.Item{{Chapter: ch}}))
	assert.NotContains(t, ch.Content, "ASSERT")
	assert.Contains(t, ch.Content, "SELECT 1;")
}

func TestWalker_StopsAtFirstError(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("boom")}
	w := walk.New(d)

	tree := []book.Item{
		{Chapter: &book.Chapter{
			Name:    "parent",
			Content: "```sql validator=sqlite\nSELECT 1;\n```\n",
			SubItems: []book.Item{
				{Chapter: &book.Chapter{Name: "child", Content: "```sql validator=sqlite\nSELECT 2;\n```\n"}},
			},
		}},
	}

	err := w.Run(context.Background(), tree)
	require.Error(t, err)
	assert.Equal(t, []string{"parent/sqlite"}, d.calls, "must not continue to the child chapter after a fatal error")
}
