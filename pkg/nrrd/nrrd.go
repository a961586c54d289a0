// Package nrrd reads the subset of the NRRD container format used for tumor
// segmentation masks: a text header followed by an attached raw or gzip
// payload, three dimensions, scalar integer or float samples. The diagonal
// of the space-directions matrix supplies the per-axis spacing.
//
// NRRD stores the fastest-varying axis first, so sizes appear as
// (nx, ny, nz); the returned grid uses the pipeline's stacking-major
// (nz, ny, nx) convention. The payload layout is identical in both
// conventions, so only the axis metadata is reversed.
package nrrd

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"lungprep/pkg/volume"
)

// ReadFile reads an NRRD mask volume from disk.
func ReadFile(path string) (*volume.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

type header struct {
	sizes     [3]int
	spacing   volume.Spacing
	typ       string
	encoding  string
	bigEndian bool
}

// Read parses an NRRD stream: magic, header fields up to the blank line,
// then the attached payload.
func Read(r io.Reader) (*volume.Grid, error) {
	br := bufio.NewReader(r)

	magic, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read NRRD magic: %w", err)
	}
	if !strings.HasPrefix(magic, "NRRD") {
		return nil, fmt.Errorf("not an NRRD stream (magic %q)", magic)
	}

	h := header{encoding: "raw", spacing: volume.Spacing{}}
	haveSpacing := false
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("unexpected end of NRRD header: %w", err)
		}
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitField(line)
		if !ok {
			continue
		}
		switch key {
		case "dimension":
			if value != "3" {
				return nil, fmt.Errorf("unsupported NRRD dimension %s (want 3)", value)
			}
		case "type":
			h.typ = value
		case "encoding":
			h.encoding = value
		case "endian":
			h.bigEndian = value == "big"
		case "sizes":
			if err := parseSizes(value, &h.sizes); err != nil {
				return nil, err
			}
		case "space directions":
			sp, err := parseSpaceDirections(value)
			if err != nil {
				return nil, err
			}
			h.spacing = sp
			haveSpacing = true
		case "spacings":
			sp, err := parseSpacings(value)
			if err != nil {
				return nil, err
			}
			if !haveSpacing {
				h.spacing = sp
				haveSpacing = true
			}
		}
	}

	if h.sizes[0] == 0 {
		return nil, fmt.Errorf("NRRD header missing sizes")
	}
	if !haveSpacing {
		return nil, fmt.Errorf("NRRD header missing space directions")
	}

	var payload io.Reader = br
	switch h.encoding {
	case "raw":
	case "gzip", "gz":
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip payload: %w", err)
		}
		defer gz.Close()
		payload = gz
	default:
		return nil, fmt.Errorf("unsupported NRRD encoding %q", h.encoding)
	}

	data, err := readSamples(payload, h)
	if err != nil {
		return nil, err
	}

	// Reverse axis order: NRRD is fastest-first, grids are stacking-major.
	dims := [3]int{h.sizes[2], h.sizes[1], h.sizes[0]}
	spacing := volume.Spacing{h.spacing[2], h.spacing[1], h.spacing[0]}
	return volume.FromData(data, dims, spacing)
}

func readSamples(r io.Reader, h header) ([]float64, error) {
	n := h.sizes[0] * h.sizes[1] * h.sizes[2]
	var order binary.ByteOrder = binary.LittleEndian
	if h.bigEndian {
		order = binary.BigEndian
	}

	width, err := sampleWidth(h.typ)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, n*width)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("short NRRD payload: %w", err)
	}

	data := make([]float64, n)
	for i := 0; i < n; i++ {
		b := raw[i*width:]
		switch normalizeType(h.typ) {
		case "uint8":
			data[i] = float64(b[0])
		case "int16":
			data[i] = float64(int16(order.Uint16(b)))
		case "uint16":
			data[i] = float64(order.Uint16(b))
		case "int32":
			data[i] = float64(int32(order.Uint32(b)))
		case "float32":
			data[i] = float64(math.Float32frombits(order.Uint32(b)))
		case "float64":
			data[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return data, nil
}

func normalizeType(t string) string {
	switch t {
	case "uchar", "unsigned char", "uint8", "uint8_t":
		return "uint8"
	case "short", "short int", "signed short", "int16", "int16_t":
		return "int16"
	case "ushort", "unsigned short", "uint16", "uint16_t":
		return "uint16"
	case "int", "signed int", "int32", "int32_t":
		return "int32"
	case "float":
		return "float32"
	case "double":
		return "float64"
	}
	return ""
}

func sampleWidth(t string) (int, error) {
	switch normalizeType(t) {
	case "uint8":
		return 1, nil
	case "int16", "uint16":
		return 2, nil
	case "int32", "float32":
		return 4, nil
	case "float64":
		return 8, nil
	}
	return 0, fmt.Errorf("unsupported NRRD type %q", t)
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func splitField(line string) (key, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(line[:i])),
		strings.TrimSpace(strings.TrimPrefix(line[i+1:], "=")), true
}

func parseSizes(value string, sizes *[3]int) error {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return fmt.Errorf("NRRD sizes %q is not three-dimensional", value)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid NRRD size %q", f)
		}
		sizes[i] = n
	}
	return nil
}

// parseSpaceDirections extracts the diagonal of the 3x3 direction matrix,
// e.g. "(0.97,0,0) (0,0.97,0) (0,0,3)" -> (0.97, 0.97, 3).
func parseSpaceDirections(value string) (volume.Spacing, error) {
	var sp volume.Spacing
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return sp, fmt.Errorf("NRRD space directions %q is not 3x3", value)
	}
	for axis, f := range fields {
		f = strings.TrimPrefix(strings.TrimSuffix(f, ")"), "(")
		comps := strings.Split(f, ",")
		if len(comps) != 3 {
			return sp, fmt.Errorf("invalid NRRD direction vector %q", fields[axis])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(comps[axis]), 64)
		if err != nil {
			return sp, fmt.Errorf("invalid NRRD direction component %q", comps[axis])
		}
		sp[axis] = math.Abs(v)
	}
	return sp, nil
}

func parseSpacings(value string) (volume.Spacing, error) {
	var sp volume.Spacing
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return sp, fmt.Errorf("NRRD spacings %q is not three-dimensional", value)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return sp, fmt.Errorf("invalid NRRD spacing %q", f)
		}
		sp[i] = math.Abs(v)
	}
	return sp, nil
}
