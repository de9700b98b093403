package batch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
	"github.com/otherjamesbrown/agriclassify/pkg/recognition"
	"github.com/otherjamesbrown/agriclassify/pkg/summary"
)

func resolved(id string, out produce.Outcome) Item {
	return Item{ID: id, State: StateResolved, Outcome: out}
}

func TestRun_Qualifying(t *testing.T) {
	r := Run{Items: []Item{
		resolved("1", produce.Success("Xoài", ptr(0.9))),
		resolved("2", produce.NotProduce("")),
		resolved("3", produce.Success("Bơ", nil)),
		resolved("4", produce.Failure(agrierr.ErrTimeout, "timeout")),
		{ID: "5", State: StateInFlight},
		resolved("6", produce.Success("Lúa", ptr(0.1))),
	}}

	assert.Equal(t, []recognition.ScoredLabel{
		{Label: "Xoài", Confidence: 0.9},
		{Label: "Lúa", Confidence: 0.1},
	}, r.Qualifying())
}

func TestRun_Counts(t *testing.T) {
	r := Run{Items: []Item{
		{ID: "p", State: StatePending},
		{ID: "f", State: StateInFlight},
		resolved("s", produce.Success("Xoài", ptr(0.9))),
		resolved("n", produce.NotProduce("")),
		resolved("x", produce.Failure(agrierr.ErrTimeout, "timeout")),
	}}

	assert.Equal(t, Counts{Total: 5, Pending: 1, InFlight: 1, Succeeded: 1, NotProduce: 1, Failed: 1}, r.Counts())
	assert.False(t, r.Done())
	assert.Equal(t, "", r.Notice())
}

func TestRun_Notice(t *testing.T) {
	failed := Run{Items: []Item{resolved("a", produce.Failure(agrierr.ErrTimeout, "timeout"))}}
	assert.True(t, failed.AllFailed())
	assert.Equal(t, NoticeAllFailed, failed.Notice())

	mixed := Run{Items: []Item{
		resolved("a", produce.Failure(agrierr.ErrTimeout, "timeout")),
		resolved("b", produce.NotProduce("")),
	}}
	assert.False(t, mixed.AllFailed())
	assert.Equal(t, NoticeComplete, mixed.Notice())

	pending := Run{Items: mixed.Items, Summary: Summary{State: SummaryPending}}
	assert.Equal(t, "", pending.Notice())

	assert.False(t, Run{}.Done())
}

func TestSummaryFromResult(t *testing.T) {
	assert.Equal(t, Summary{State: SummaryReady, Text: "ok"}, summaryFromResult(summary.Result{Summary: "ok"}))
	assert.Equal(t,
		Summary{State: SummaryFailed, Reason: "empty summary result", Code: "empty_result"},
		summaryFromResult(summary.Result{Failure: "empty summary result", Code: agrierr.ErrEmptyResult}))
}

func TestRun_JSON(t *testing.T) {
	r := Run{
		ID:      "batch-1",
		Items:   []Item{resolved("a", produce.Success("Xoài", ptr(0.9)))},
		Summary: Summary{State: SummaryUnavailable, Reason: ReasonInsufficient},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	item := decoded["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "resolved", item["state"])
	assert.Equal(t, "success", item["outcome"].(map[string]any)["kind"])
	assert.Equal(t, "unavailable", decoded["summary"].(map[string]any)["state"])
}
