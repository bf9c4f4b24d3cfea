package render

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// goldenAngle spaces successive hues so that neighbors in label order
// stay far apart on the color wheel.
const goldenAngle = 137.50776405003785

// Palette returns n distinguishable colors as "#rrggbb" strings.
func Palette(n int) []string {
	out := make([]string, n)
	for i := range out {
		h := math.Mod(float64(i)*goldenAngle, 360)
		// Alternate lightness so hues that end up close still differ.
		l := 0.55
		if i%2 == 1 {
			l = 0.7
		}
		out[i] = colorful.Hcl(h, 0.6, l).Clamped().Hex()
	}
	return out
}
