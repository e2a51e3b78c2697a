// Package viz renders quantum results in the terminal.
//
// Drawing happens on a braille [Canvas] (2x4 dots per cell). The Bloch
// sphere is a [Wireframe] projected by a [Camera]; bar charts cover
// histograms, probability distributions and signed amplitude stages;
// [LinePlot] wraps asciigraph for sweeps and spectra. Colours come from
// the current [Theme] and can be switched with [SetTheme].
package viz
