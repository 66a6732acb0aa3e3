package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    Price
		wantErr bool
	}{
		{"5", 500, false},
		{"5.5", 550, false},
		{"5.50", 550, false},
		{"5.500", 550, false},
		{".75", 75, false},
		{"0", 0, false},
		{"999.99", 99999, false},
		{"-1.25", -125, false},
		{" 12.30 ", 1230, false},
		{"5.555", 0, true},
		{"", 0, true},
		{".", 0, true},
		{"abc", 0, true},
		{"1e3", 0, true},
		{"1.-5", 0, true},
		{"1.+5", 0, true},
		{"+1.5", 150, false},
		{"1.5+", 0, true},
		{"+-1", 0, true},
		{"1_0", 0, true},
		{"1. 5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrice_String(t *testing.T) {
	assert.Equal(t, "5.50", Price(550).String())
	assert.Equal(t, "0.05", Price(5).String())
	assert.Equal(t, "999.99", MaxPrice.String())
	assert.Equal(t, "-1.25", Price(-125).String())
}

func TestPrice_Valid(t *testing.T) {
	assert.True(t, Price(0).Valid())
	assert.True(t, MaxPrice.Valid())
	assert.False(t, (MaxPrice + 1).Valid())
	assert.False(t, Price(-1).Valid())
}

func TestPrice_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Price Price `json:"price"`
	}{Price: 3050})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"30.50"}`, string(out))

	for _, in := range []string{`30.5`, `"30.50"`, `30.50`} {
		var p Price
		require.NoError(t, json.Unmarshal([]byte(in), &p), in)
		assert.Equal(t, Price(3050), p, in)
	}

	var p Price
	assert.Error(t, json.Unmarshal([]byte(`"thirty"`), &p))
	assert.Error(t, json.Unmarshal([]byte(`true`), &p))
}

func TestPrice_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want Price
	}{
		{"bytes", []byte("12.34"), 1234},
		{"string", "0.99", 99},
		{"int", int64(7), 700},
		{"float", 2.5, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Price
			require.NoError(t, p.Scan(tt.src))
			assert.Equal(t, tt.want, p)
		})
	}

	var p Price
	assert.Error(t, p.Scan(true))
	assert.Error(t, p.Scan([]byte("bad")))
}

func TestPrice_Value(t *testing.T) {
	v, err := Price(1234).Value()
	require.NoError(t, err)
	assert.Equal(t, "12.34", v)
}
