package apiclient_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

type economicEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Country    string    `json:"country"`
	Importance string    `json:"importance"`
	ScheduleAt time.Time `json:"schedule_at"`
}

func TestStructSchema_DecodesJSONShapedValues(t *testing.T) {
	in := map[string]any{
		"id":          "e1",
		"title":       "Non-farm payrolls",
		"country":     "US",
		"importance":  "high",
		"schedule_at": "2026-03-06T13:30:00Z",
	}
	got, err := apiclient.Struct[economicEvent]().Parse(in)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, time.Date(2026, 3, 6, 13, 30, 0, 0, time.UTC), got.ScheduleAt)
}

func TestStructSchema_UnknownKeys(t *testing.T) {
	in := map[string]any{"id": "e1", "surprise": true}

	_, err := apiclient.Struct[economicEvent]().Parse(in)
	var vErr *apiclient.ValidationError
	require.ErrorAs(t, err, &vErr)

	got, err := apiclient.Struct[economicEvent]().AllowUnknown().Parse(in)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
}

func TestStructSchema_ChecksAndNilInput(t *testing.T) {
	highOnly := func(e economicEvent) error {
		if e.Importance != "high" {
			return errors.New("importance must be high")
		}
		return nil
	}
	_, err := apiclient.Struct(highOnly).Parse(map[string]any{"importance": "low"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importance must be high")

	_, err = apiclient.Struct[economicEvent]().Parse(nil)
	require.Error(t, err)
}

func TestStructSchema_Slices(t *testing.T) {
	got, err := apiclient.Struct[[]economicEvent]().Parse([]any{
		map[string]any{"id": "a"},
		map[string]any{"id": "b"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID)
}

func TestValidatorFunc(t *testing.T) {
	v := apiclient.ValidatorFunc[int](func(in any) (int, error) {
		f, ok := in.(float64)
		if !ok {
			return 0, errors.New("not a number")
		}
		return int(f), nil
	})
	n, err := v.Parse(float64(7))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = v.Parse("x")
	assert.Error(t, err)
}
