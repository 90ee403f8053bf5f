package ui

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders recent throughput samples as a strip of block
// characters, exactly width runes wide. Samples are scaled against the
// window maximum, so the tallest block marks the fastest second of the
// hash phase.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}

	// Right-align the newest samples; a short history pads the left
	// with floor blocks.
	window := make([]float64, width)
	if len(data) >= width {
		copy(window, data[len(data)-width:])
	} else {
		copy(window[width-len(data):], data)
	}

	var peak float64
	for _, v := range window {
		if v > peak {
			peak = v
		}
	}

	out := make([]rune, width)
	for i, v := range window {
		if peak <= 0 || v <= 0 {
			out[i] = sparkBlocks[0]
			continue
		}
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}
