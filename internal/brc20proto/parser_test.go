package brc20proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Deploy(t *testing.T) {
	payload := []byte(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000"}`)
	op, err := Parse("text/plain", payload)
	require.NoError(t, err)

	deploy, ok := op.(DeployOp)
	require.True(t, ok)
	assert.Equal(t, "ordi", deploy.Ticker())
	assert.Equal(t, "ordi", deploy.DisplayTicker())
	assert.Equal(t, "21000000", deploy.Max.String())
	require.NotNil(t, deploy.Limit)
	assert.Equal(t, "1000", deploy.Limit.String())
	assert.Equal(t, int32(18), deploy.Decimals)
}

func TestParse_DeployWithDecimals(t *testing.T) {
	payload := []byte(`{"p":"brc-20","op":"deploy","tick":"PEPE","max":"1000","dec":"8"}`)
	op, err := Parse("application/json; charset=utf-8", payload)
	require.NoError(t, err)

	deploy := op.(DeployOp)
	assert.Equal(t, "pepe", deploy.Ticker())
	assert.Equal(t, "PEPE", deploy.DisplayTicker())
	assert.Equal(t, int32(8), deploy.Decimals)
	assert.Nil(t, deploy.Limit)
}

func TestParse_Mint(t *testing.T) {
	payload := []byte(`{"p":"BRC-20","op":"MINT","tick":"ordi","amt":"500"}`)
	op, err := Parse("text/plain", payload)
	require.NoError(t, err)

	mint := op.(MintOp)
	assert.Equal(t, "ordi", mint.Ticker())
	assert.Equal(t, "500", mint.Amount.String())
}

func TestParse_Transfer(t *testing.T) {
	payload := []byte(`{"p":"brc-20","op":"transfer","tick":"ordi","amt":"300"}`)
	op, err := Parse("text/plain", payload)
	require.NoError(t, err)

	transfer := op.(TransferOp)
	assert.Equal(t, "300", transfer.Amount.String())
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		payload string
	}{
		{name: "wrong mime", mime: "image/png", payload: `{"p":"brc-20","op":"mint","tick":"ordi","amt":"1"}`},
		{name: "not json", mime: "text/plain", payload: `not json`},
		{name: "not an object", mime: "text/plain", payload: `[1,2,3]`},
		{name: "wrong protocol", mime: "text/plain", payload: `{"p":"brc-30","op":"mint","tick":"ordi","amt":"1"}`},
		{name: "unknown op", mime: "text/plain", payload: `{"p":"brc-20","op":"burn","tick":"ordi","amt":"1"}`},
		{name: "tick wrong length", mime: "text/plain", payload: `{"p":"brc-20","op":"mint","tick":"ord","amt":"1"}`},
		{name: "missing amt", mime: "text/plain", payload: `{"p":"brc-20","op":"mint","tick":"ordi"}`},
		{name: "zero amt", mime: "text/plain", payload: `{"p":"brc-20","op":"mint","tick":"ordi","amt":"0"}`},
		{name: "negative amt", mime: "text/plain", payload: `{"p":"brc-20","op":"mint","tick":"ordi","amt":"-1"}`},
		{name: "deploy missing max", mime: "text/plain", payload: `{"p":"brc-20","op":"deploy","tick":"ordi"}`},
		{name: "deploy dec out of range", mime: "text/plain", payload: `{"p":"brc-20","op":"deploy","tick":"ordi","max":"1","dec":"19"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.mime, []byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotBRC20)
		})
	}
}

func TestParse_UnknownFieldsTolerated(t *testing.T) {
	payload := []byte(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"1","unexpected":"field"}`)
	_, err := Parse("text/plain", payload)
	require.NoError(t, err)
}

func TestParse_RoundTrip(t *testing.T) {
	payload := []byte(`  {"p":"brc-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000","dec":"8"}  `)
	op1, err := Parse("text/plain", payload)
	require.NoError(t, err)

	reserialized := []byte(`{"p":"brc-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000","dec":"8"}`)
	op2, err := Parse("text/plain", reserialized)
	require.NoError(t, err)

	assert.Equal(t, op1, op2)
}
