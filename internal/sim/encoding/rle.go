package encoding

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// MaxRun caps a single run so decoders can bound allocations.
const MaxRun = 1 << 24

// AppendRuns appends (value, run_len) uvarint pairs for vals to dst.
func AppendRuns(dst []byte, vals []uint16) []byte {
	for i := 0; i < len(vals); {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v && run < MaxRun; j++ {
			run++
		}
		dst = binary.AppendUvarint(dst, uint64(v))
		dst = binary.AppendUvarint(dst, uint64(run))
		i += run
	}
	return dst
}

// ReadRuns expands uvarint pairs. limit bounds the decoded length; zero
// means unbounded.
func ReadRuns(raw []byte, maxVal uint64, limit int) ([]uint16, error) {
	var out []uint16
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > maxVal {
			return nil, fmt.Errorf("value too large: %d", v)
		}
		if run == 0 || run > MaxRun {
			return nil, fmt.Errorf("bad run length %d", run)
		}
		if limit > 0 && len(out)+int(run) > limit {
			return nil, fmt.Errorf("decoded length exceeds %d", limit)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(v))
		}
	}
	return out, nil
}

// EncodeRLE encodes a sequence of tile ids into base64(varint pairs).
func EncodeRLE(ids []uint16) string {
	return base64.StdEncoding.EncodeToString(AppendRuns(nil, ids))
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return ReadRuns(raw, 0xFFFF, 0)
}

// EncodeBytesRLE run-length encodes a byte grid (fog opacity cells) without
// the base64 wrapper.
func EncodeBytesRLE(cells []uint8) []byte {
	vals := make([]uint16, len(cells))
	for i, c := range cells {
		vals[i] = uint16(c)
	}
	return AppendRuns(nil, vals)
}

// DecodeBytesRLE expects exactly want cells.
func DecodeBytesRLE(raw []byte, want int) ([]uint8, error) {
	vals, err := ReadRuns(raw, 0xFF, want)
	if err != nil {
		return nil, err
	}
	if len(vals) != want {
		return nil, fmt.Errorf("cells length mismatch: got %d want %d", len(vals), want)
	}
	out := make([]uint8, want)
	for i, v := range vals {
		out[i] = uint8(v)
	}
	return out, nil
}
