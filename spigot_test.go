package pitime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// First 1000 fractional digits of pi, from the decimal expansion published at
// https://oeis.org/A000796.
const piReference = "1415926535897932384626433832795028841971693993751058209749445923078164062862" +
	"089986280348253421170679821480865132823066470938446095505822317253594081284811174502841027019385" +
	"211055596446229489549303819644288109756659334461284756482337867831652712019091456485669234603486" +
	"104543266482133936072602491412737245870066063155881748815209209628292540917153643678925903600113" +
	"305305488204665213841469519415116094330572703657595919530921861173819326117931051185480744623799" +
	"627495673518857527248912279381830119491298336733624406566430860213949463952247371907021798609437" +
	"027705392171762931767523846748184676694051320005681271452635608277857713427577896091736371787214" +
	"684409012249534301465495853710507922796892589235420199561121290219608640344181598136297747713099" +
	"605187072113499999983729780499510597317328160963185950244594553469083026425223082533446850352619" +
	"311881710100031378387528865875332083814206171776691473035982534904287554687311595628638823537875" +
	"937519577818577805321712268066130019278766111959092164201989"

func TestSpigotDigits(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"zero", 0},
		{"one", 1},
		{"two", 2},
		{"five", 5},
		{"ten", 10},
		{"hundred", 100},
		{"thousand", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := SpigotDigits(tt.n)
			require.Len(t, actual, tt.n)
			assert.Equal(t, piReference[:tt.n], actual)
		})
	}
}

func TestSpigotDigits_NegativeClampsToZero(t *testing.T) {
	assert.Empty(t, SpigotDigits(-1))
	assert.Empty(t, SpigotDigits(-1000))
}

func TestSpigotDigits_DigitRange(t *testing.T) {
	digits := SpigotDigits(1000)
	for i := 0; i < len(digits); i++ {
		require.Truef(t, digits[i] >= '0' && digits[i] <= '9', "index %d: %q is not a decimal digit", i, digits[i])
	}
}

func TestSpigotDigits_Deterministic(t *testing.T) {
	first := SpigotDigits(250)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, SpigotDigits(250))
	}
}

// Digits are confirmed left to right and never revised, so a shorter run must
// always be a prefix of a longer one.
func TestSpigotDigits_PrefixStable(t *testing.T) {
	full := SpigotDigits(500)
	for _, n := range []int{1, 2, 3, 9, 10, 99, 100, 250, 499} {
		require.Equal(t, full[:n], SpigotDigits(n), "n=%d is not a prefix of the longer run", n)
	}
}

// The expansion of pi contains "999999" starting at fractional position 762
// (the Feynman point). Truncating inside and just after the run exercises the
// deferred-nines resolution against the reference digits.
func TestSpigotDigits_NinesRun(t *testing.T) {
	require.Equal(t, "999999", piReference[761:767], "reference digits misaligned")
	for _, n := range []int{761, 762, 765, 767, 768, 770} {
		require.Equal(t, piReference[:n], SpigotDigits(n), "n=%d", n)
	}
	assert.True(t, strings.HasSuffix(SpigotDigits(767), "999999"))
}

// The setup margin must hold for every count, not just the sampled ones: the
// classic 10n/3+3 sizing breaks at n=2 and n=31 among others, which is why
// the generator carries spigotMargin extra steps.
func TestSpigotDigits_MarginHolds(t *testing.T) {
	for n := 0; n <= 360; n++ {
		actual := SpigotDigits(n)
		require.Lenf(t, actual, n, "n=%d confirmed only %d digits", n, len(actual))
		require.Equalf(t, piReference[:n], actual, "n=%d", n)
	}
}

func BenchmarkSpigotDigits(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SpigotDigits(1000)
	}
}
