package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
)

func sampleTable() praytime.Table {
	return praytime.Table{
		Date: praytime.NewCalendarDate(2024, time.November, 3),
		Times: map[praytime.Marker]string{
			praytime.Fajr:     "05:12",
			praytime.Sunrise:  "06:31",
			praytime.Dhuhr:    "12:24",
			praytime.Asr:      "15:38",
			praytime.Maghrib:  "18:05",
			praytime.Isha:     "19:19",
			praytime.Midnight: "23:48",
		},
	}
}

func TestBuildAlarmPlan(t *testing.T) {
	t.Parallel()

	plan, err := BuildAlarmPlan(sampleTable())
	require.NoError(t, err)
	require.Len(t, plan, 5)

	names := make([]string, 0, len(plan))
	for _, e := range plan {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"fajr", "dhuhr", "asr", "maghrib", "isha"}, names)
	assert.Equal(t, Entry{Name: "fajr", Display: "Fajr", Time: "05:12", Hour: 5, Minute: 12}, plan[0])
	assert.Equal(t, "Isha", plan[4].Display)
	assert.Equal(t, 19, plan[4].Hour)
}

func TestBuildAlarmPlan_Malformed(t *testing.T) {
	t.Parallel()

	table := sampleTable()
	table.Times[praytime.Asr] = "3:38pm"
	_, err := BuildAlarmPlan(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asr")

	table = sampleTable()
	delete(table.Times, praytime.Isha)
	_, err = BuildAlarmPlan(table)
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "00:00"},
		{in: "23:59", hour: 23, minute: 59},
		{in: "05:07", hour: 5, minute: 7},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestBuildAlarmPlan_FromComputedTable(t *testing.T) {
	t.Parallel()

	cfg := praytime.Config{Latitude: 19.0760, Longitude: 72.8777, Timezone: "Asia/Kolkata", Method: praytime.MethodMWL}
	table, err := praytime.ComputeTimes(praytime.NewCalendarDate(2024, time.November, 3), cfg)
	require.NoError(t, err)

	plan, err := BuildAlarmPlan(table)
	require.NoError(t, err)
	require.Len(t, plan, 5)
	for i := 1; i < len(plan); i++ {
		prev := plan[i-1].Hour*60 + plan[i-1].Minute
		cur := plan[i].Hour*60 + plan[i].Minute
		assert.Greater(t, cur, prev, "%s before %s", plan[i-1].Name, plan[i].Name)
	}
}
