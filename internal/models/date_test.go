package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"1995-06-09", false},
		{"2000-02-29", false},
		{"1995-6-9", true},
		{"09/06/1995", true},
		{"2001-02-29", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, d.String())
		})
	}
}

func TestNewDate_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	d := NewDate(time.Date(1995, time.June, 9, 23, 30, 0, 0, loc))

	assert.Equal(t, "1995-06-09", d.String())
	assert.Equal(t, time.UTC, d.Location())
	assert.Zero(t, d.Hour())
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"1995-06-09"`), &d))
	assert.Equal(t, time.June, d.Month())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1995-06-09"`, string(out))

	out, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	assert.Error(t, json.Unmarshal([]byte(`19950609`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"June 9th"`), &d))
}
