package workflow

import (
	"testing"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline_CRUDAndView(t *testing.T) {
	p := newProject(t, threeSteps())
	earlier := testNow.Add(-48 * time.Hour)

	first, err := AddTimelineNote(p, 0, "memo sent", nil, testNow)
	require.NoError(t, err)
	_, err = AddTimelineNote(p, 0, "request received", &earlier, testNow)
	require.NoError(t, err)
	_, err = AddTimelineNote(p, 0, "follow-up", nil, testNow.Add(time.Hour))
	require.NoError(t, err)

	// Stored order is insertion order; the view is newest first.
	stored := p.Steps[0].Timeline
	require.Len(t, stored, 3)
	assert.Equal(t, "request received", stored[1].Text)
	view := TimelineView(&p.Steps[0])
	assert.Equal(t, []string{"follow-up", "memo sent", "request received"},
		[]string{view[0].Text, view[1].Text, view[2].Text})
	assert.Equal(t, "memo sent", p.Steps[0].Timeline[0].Text, "view must not reorder storage")

	require.NoError(t, EditTimelineNote(p, 0, first, "memo sent to director", testNow))
	assert.Equal(t, "memo sent to director", p.Steps[0].Timeline[0].Text)

	require.NoError(t, DeleteTimelineNote(p, 0, first, testNow))
	assert.Len(t, p.Steps[0].Timeline, 2)
	assert.ErrorIs(t, DeleteTimelineNote(p, 0, first, testNow), domain.ErrNotFound)
}

func TestTimeline_DeleteByTimestamp(t *testing.T) {
	p := newProject(t, threeSteps())
	p.Steps[1].Timeline = []domain.Note{{Text: "legacy", Timestamp: testNow, Type: domain.NoteTimeline}}

	require.NoError(t, DeleteTimelineNote(p, 1, testNow.Format(time.RFC3339), testNow))
	assert.Empty(t, p.Steps[1].Timeline)
}

func TestPostits_CRUD(t *testing.T) {
	p := newProject(t, threeSteps())

	id, err := AddPostit(p, 2, "call finance", testNow)
	require.NoError(t, err)
	require.Len(t, p.Steps[2].Postits, 1)
	assert.Equal(t, domain.NotePostit, p.Steps[2].Postits[0].Type)
	assert.Empty(t, p.Steps[2].Timeline, "postits and timeline are independent")

	require.NoError(t, EditPostit(p, 2, id, "call finance on Monday", testNow))
	assert.Equal(t, "call finance on Monday", p.Steps[2].Postits[0].Text)

	assert.ErrorIs(t, EditPostit(p, 2, id, " ", testNow), domain.ErrValidation)
	require.NoError(t, DeletePostit(p, 2, id, testNow))
	assert.Empty(t, p.Steps[2].Postits)
}

func TestNotes_SameInstantGetDistinctIDs(t *testing.T) {
	p := newProject(t, threeSteps())
	a, err := AddPostit(p, 0, "one", testNow)
	require.NoError(t, err)
	b, err := AddPostit(p, 0, "two", testNow)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, DeletePostit(p, 0, b, testNow))
	require.Len(t, p.Steps[0].Postits, 1)
	assert.Equal(t, "one", p.Steps[0].Postits[0].Text)
}
