// Package viz renders relaxation runs for a terminal or an image viewer.
//
// [LiveModel] is a bubbletea program that follows a run through a [Feed]
// observer and draws the convergence history with asciigraph and the mesh
// as a rotatable Braille wireframe. [Overlay] stamps a mesh onto one axial
// slice of the volume and [WritePNG] saves the result.
package viz
