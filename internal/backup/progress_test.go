package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/bookvault/internal/entities"
)

type recordingReporter struct {
	totals    []int
	processed []int
	current   string
}

func (r *recordingReporter) StartSync(int) error { return nil }
func (r *recordingReporter) SetTotal(total int) error {
	r.totals = append(r.totals, total)
	return nil
}
func (r *recordingReporter) UpdateProgress(processed, _, _, _ int, current string) error {
	r.processed = append(r.processed, processed)
	r.current = current
	return nil
}
func (r *recordingReporter) CompleteSync(entities.SyncStatus, string) error { return nil }

func TestTracker(t *testing.T) {
	t.Run("max only grows", func(t *testing.T) {
		rep := &recordingReporter{}
		tr := NewTracker(context.Background(), rep, nil)
		tr.SetMaxPos(10)
		tr.SetMaxPos(4)
		tr.SetMaxPos(12)

		_, max, _ := tr.Snapshot()
		assert.Equal(t, 12, max)
		assert.Equal(t, []int{10, 12}, rep.totals)
	})

	t.Run("publish advances position", func(t *testing.T) {
		rep := &recordingReporter{}
		tr := NewTracker(context.Background(), rep, nil)
		tr.Publish(1, "INFO.xml")
		tr.Publish(2, "")

		pos, _, msg := tr.Snapshot()
		assert.Equal(t, 3, pos)
		assert.Equal(t, "INFO.xml", msg)
		assert.Equal(t, []int{1, 3}, rep.processed)
	})

	t.Run("cancel", func(t *testing.T) {
		tr := NewTracker(context.Background(), nil, nil)
		assert.False(t, tr.IsCancelled())
		tr.Cancel()
		assert.True(t, tr.IsCancelled())
	})

	t.Run("context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		tr := NewTracker(ctx, nil, nil)
		cancel()
		assert.True(t, tr.IsCancelled())
	})
}

func TestWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := WithContext(ctx, nil)
	assert.False(t, p.IsCancelled())
	cancel()
	assert.True(t, p.IsCancelled())

	assert.Equal(t, NopProgress{}, WithContext(nil, nil))
}
