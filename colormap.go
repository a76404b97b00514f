package labeler

// ColorMap returns the first n entries of the PASCAL VOC palette. Entry i
// spreads the bits of i over the high bits of the three channels, so nearby
// indices get clearly different colors. Entry 0 is black.
func ColorMap(n int) []Color {
	out := make([]Color, n)
	for i := range out {
		var r, g, b uint8
		c := i
		for j := 0; j < 8; j++ {
			r |= bit(c, 0) << (7 - j)
			g |= bit(c, 1) << (7 - j)
			b |= bit(c, 2) << (7 - j)
			c >>= 3
		}
		out[i] = RGB(r, g, b)
	}
	return out
}

func bit(v, i int) uint8 {
	return uint8(v>>i) & 1
}

// ClassColor returns the palette color of the class at table position i.
// Black is skipped, so position 0 gets palette entry 1.
func ClassColor(i int) Color {
	if i < 0 {
		return ColorWhite
	}
	return ColorMap(i + 2)[i+1]
}
