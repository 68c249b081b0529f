package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain integer", in: "21000000", want: "21000000"},
		{name: "fractional", in: "1.50", want: "1.50"},
		{name: "leading dot", in: ".5", want: "0.5"},
		{name: "trailing dot", in: "5.", want: "5"},
		{name: "zero", in: "0", want: "0"},
		{name: "empty", in: "", wantErr: true},
		{name: "leading plus rejected", in: "+5", wantErr: true},
		{name: "negative rejected", in: "-5", wantErr: true},
		{name: "scientific rejected", in: "1e10", wantErr: true},
		{name: "multiple dots rejected", in: "1.2.3", wantErr: true},
		{name: "non numeric rejected", in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestScale(t *testing.T) {
	assert.Equal(t, int32(0), MustParse("100").Scale())
	assert.Equal(t, int32(2), MustParse("1.50").Scale())
	assert.Equal(t, int32(3), MustParse("0.001").Scale())
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, MustParse("1.50").Compare(MustParse("1.5")))
	assert.True(t, MustParse("2").GreaterThan(MustParse("1.999")))
	assert.True(t, MustParse("1").LessThanOrEqual(MustParse("1.0")))
	assert.True(t, MustParse("1").LessThanOrEqual(MustParse("2")))
}

func TestAddSub(t *testing.T) {
	sum := MustParse("1.5").Add(MustParse("2.25"))
	assert.Equal(t, "3.75", sum.String())

	diff := MustParse("5").Sub(MustParse("2.5"))
	assert.Equal(t, "2.5", diff.String())

	// Sub clamps at zero instead of going negative.
	clamped := MustParse("1").Sub(MustParse("5"))
	assert.True(t, clamped.IsZero())
}

func TestMin(t *testing.T) {
	assert.Equal(t, "20", Min(MustParse("50"), MustParse("20")).String())
	assert.Equal(t, "20", Min(MustParse("20"), MustParse("50")).String())
}

func TestFitsScale(t *testing.T) {
	assert.True(t, MustParse("1.50").FitsScale(2))
	assert.False(t, MustParse("1.500").FitsScale(2))
	assert.True(t, MustParse("100").FitsScale(0))
}

func TestIsZeroIsPositive(t *testing.T) {
	assert.True(t, Zero().IsZero())
	assert.False(t, Zero().IsPositive())
	assert.True(t, MustParse("0.0").IsZero())
	assert.True(t, MustParse("0.1").IsPositive())
}

func TestTextRoundTrip(t *testing.T) {
	d := MustParse("123.450")
	text, err := d.MarshalText()
	require.NoError(t, err)

	var out Decimal
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, d.String(), out.String())
}
