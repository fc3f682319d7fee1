package splat

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Header lines shared by the decoder and the encoders.
const (
	plyMagic          = "ply"
	plyFormatBinary   = "binary_little_endian"
	plyFormatASCII    = "ascii"
	plyVersion        = "1.0"
	plyEndHeader      = "end_header"
	plyVertexElement  = "vertex"
	plyActivationLog  = "activation log"
	maxPLYHeaderBytes = 64 << 10
)

// Property lists of the supported layouts, in file order.
var (
	splatV1Properties = []string{
		"x", "y", "z",
		"nx", "ny", "nz",
		"f_dc_0", "f_dc_1", "f_dc_2",
		"opacity",
		"scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
	}
	interchangeV1Properties = []string{
		"x", "y", "z",
		"nx", "ny", "nz",
		"red", "green", "blue",
		"alpha",
	}
)

// Properties returns the ordered property names of the layout, or nil for LayoutUnknown.
func (l Layout) Properties() []string {
	switch l {
	case LayoutSplatV1:
		return splatV1Properties
	case LayoutInterchangeV1:
		return interchangeV1Properties
	default:
		return nil
	}
}

// Stride returns the byte size of one binary record of the layout.
func (l Layout) Stride() int {
	return 4 * len(l.Properties())
}

// plyHeader is the parsed form of a PLY header.
type plyHeader struct {
	count         int
	layout        Layout
	logActivation bool
	bodyOffset    int
}

// parsePLYHeader reads the header at the start of data and resolves it to a supported layout.
func parsePLYHeader(data []byte) (*plyHeader, error) {
	h := &plyHeader{count: -1}
	var properties []string
	offset := 0
	lineNo := 0

	for {
		if offset >= len(data) || offset >= maxPLYHeaderBytes {
			return nil, headerError(offset, plyEndHeader, "header is not terminated")
		}
		end := bytes.IndexByte(data[offset:], '\n')
		if end < 0 {
			return nil, headerError(offset, plyEndHeader, "header is not terminated")
		}
		line := strings.TrimSuffix(string(data[offset:offset+end]), "\r")
		lineStart := offset
		offset += end + 1
		lineNo++

		if lineNo == 1 {
			if line != plyMagic {
				return nil, headerError(0, "magic", "not a ply file")
			}
			continue
		}

		fields := strings.Fields(line)
		if lineNo == 2 {
			if len(fields) == 0 || fields[0] != "format" {
				return nil, headerError(lineStart, "format", "missing format line")
			}
			if err := checkFormatLine(lineStart, fields); err != nil {
				return nil, err
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			return nil, headerError(lineStart, "format", "duplicate format line")
		case "comment":
			if strings.TrimSpace(strings.TrimPrefix(line, "comment")) == plyActivationLog {
				h.logActivation = true
			}
		case "obj_info":
		case "element":
			if h.count >= 0 {
				return nil, headerError(lineStart, line, "only a single vertex element is supported")
			}
			if len(fields) != 3 || fields[1] != plyVertexElement {
				return nil, headerError(lineStart, line, "only a single vertex element is supported")
			}
			n, err := strconv.ParseUint(fields[2], 10, 31)
			if err != nil {
				return nil, headerError(lineStart, line, "invalid element count")
			}
			h.count = int(n)
		case "property":
			if h.count < 0 {
				return nil, headerError(lineStart, line, "property declared before element")
			}
			if len(fields) != 3 || (fields[1] != "float" && fields[1] != "float32") {
				return nil, headerError(lineStart, line, "only scalar float properties are supported")
			}
			properties = append(properties, fields[2])
		case plyEndHeader:
			if h.count < 0 {
				return nil, headerError(lineStart, "element", "missing vertex element")
			}
			h.bodyOffset = offset
			h.layout = matchLayout(properties)
			if h.layout == LayoutUnknown {
				return nil, headerError(lineStart, "property", fmt.Sprintf("unsupported property layout %v", properties))
			}
			return h, nil
		default:
			return nil, headerError(lineStart, line, "unknown header keyword")
		}
	}
}

func checkFormatLine(offset int, fields []string) error {
	if len(fields) != 3 {
		return headerError(offset, "format", "malformed format line")
	}
	switch fields[1] {
	case plyFormatBinary:
	case plyFormatASCII:
		return headerError(offset, "format", "ascii bodies are not supported for ingestion")
	default:
		return headerError(offset, "format", fmt.Sprintf("unsupported encoding %q", fields[1]))
	}
	if fields[2] != plyVersion {
		return headerError(offset, "format", fmt.Sprintf("unsupported version %q", fields[2]))
	}
	return nil
}

func matchLayout(properties []string) Layout {
	for _, l := range []Layout{LayoutSplatV1, LayoutInterchangeV1} {
		want := l.Properties()
		if len(want) != len(properties) {
			continue
		}
		match := true
		for i := range want {
			if want[i] != properties[i] {
				match = false
				break
			}
		}
		if match {
			return l
		}
	}
	return LayoutUnknown
}

// writePLYHeader emits the export header for count interchange records.
func writePLYHeader(buf *bytes.Buffer, format string, count int) {
	buf.WriteString(plyMagic + "\n")
	buf.WriteString("format " + format + " " + plyVersion + "\n")
	buf.WriteString("comment oxy-splat export\n")
	buf.WriteString("element " + plyVertexElement + " " + strconv.Itoa(count) + "\n")
	for _, p := range interchangeV1Properties {
		buf.WriteString("property float " + p + "\n")
	}
	buf.WriteString(plyEndHeader + "\n")
}
