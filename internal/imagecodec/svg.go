package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for "<svg" tag or SVG namespace in the initial portion of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// parseSvgExplicitSize extracts width and height attributes from the root
// element. viewBox is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr extracts the leading integer of a quoted attribute value,
// e.g. width="123px".
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	rest := tag[pos+len(attr)+2:]
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return 0, false
	}
	quote := rest[0]
	val := rest[1:]
	if end := strings.IndexByte(val, quote); end >= 0 {
		val = val[:end]
	}

	num := 0
	found := false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else if found {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}

// renderSVG rasterizes an SVG document onto a white canvas of the given size.
func renderSVG(svgData []byte, targetW, targetH int) (image.Image, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
