package export

import (
	"fmt"
	"strings"

	"vectra/internal/segment"
)

// renderSVG assembles the SVG document. Layers are emitted in paint order
// with the even-odd fill rule so traced holes render as holes. An empty
// layer set yields a valid document with no paths.
func renderSVG(width, height int, layers []segment.Layer) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	for _, layer := range layers {
		if layer.PathData == "" {
			continue
		}
		fmt.Fprintf(&sb, `  <path d="%s" fill="%s" fill-rule="evenodd"/>`+"\n",
			layer.PathData, layer.Color)
	}
	sb.WriteString("</svg>\n")
	return []byte(sb.String())
}
