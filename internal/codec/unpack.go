package codec

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

// Unpack is the inverse of Pack: it decodes a smartbridge wire string back
// into a partially-populated Record (only the operation-specific fields
// that variant carries are set; height/index/txid/emitter/receiver/cost
// are attached by the ingest pipeline, not the codec).
func Unpack(table *FormatTable, wire string) (*model.Record, error) {
	if table.Regex != nil && !table.Regex.MatchString(wire) {
		return nil, errs.New(errs.InvalidSmartbridge, "wire string failed regex gate")
	}
	if len(wire) > MaxWireLength {
		return nil, errs.New(errs.InvalidSmartbridge, "wire string exceeds max length")
	}

	family, rest, err := splitPrefix(wire)
	if err != nil {
		return nil, err
	}

	famTable, ok := table.Variants[family]
	if !ok {
		return nil, errs.New(errs.InvalidSmartbridge, "unknown family")
	}

	// The fixed section is the longest hex run; its exact length depends
	// on the variant, which in turn depends on the first fixed byte (the
	// op code) — so decode the op byte first, then re-slice.
	if len(rest) < 2 {
		return nil, errs.New(errs.InvalidSmartbridge, "wire string too short")
	}
	codeByte, err := hex.DecodeString(rest[:2])
	if err != nil {
		return nil, errs.Wrap(errs.InvalidSmartbridge, err, "tp not hex")
	}
	code := codeByte[0]

	variant, ok := famTable[code]
	if !ok {
		return nil, errs.New(errs.InvalidSmartbridge, "no variant for tp")
	}
	codeOp, ok := table.CodeOp[family]
	if !ok {
		return nil, errs.New(errs.InvalidSmartbridge, "no code->op map for family")
	}
	op, ok := codeOp[code]
	if !ok {
		return nil, errs.New(errs.InvalidSmartbridge, "tp code not in milestone input types")
	}

	fixedLen := fixedByteLength(variant)
	fixedHexLen := fixedLen * 2
	if len(rest) < fixedHexLen {
		return nil, errs.New(errs.InvalidSmartbridge, "truncated fixed section")
	}
	fixed, err := hex.DecodeString(rest[:fixedHexLen])
	if err != nil {
		return nil, errs.Wrap(errs.InvalidSmartbridge, err, "fixed section not hex")
	}
	varia := rest[fixedHexLen:]

	rec := &model.Record{SlpType: family, Tp: op}
	if err := unpackFixed(variant, fixed, rec); err != nil {
		return nil, err
	}
	if variant.HasVaria {
		if err := unpackVaria(rec, op, varia); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func splitPrefix(wire string) (model.Family, string, error) {
	for fam, prefix := range wirePrefix {
		if strings.HasPrefix(wire, prefix) {
			return fam, wire[len(prefix):], nil
		}
	}
	return "", "", errs.New(errs.InvalidSmartbridge, "unrecognised smartbridge prefix")
}

func fixedByteLength(v Variant) int {
	n := 0
	for _, f := range v.Fields {
		switch f.Kind {
		case KindU8, KindBool:
			n++
		case KindU16:
			n += 2
		case KindU32:
			n += 4
		case KindU64, KindF64:
			n += 8
		case KindFixedBytes:
			n += f.Width
		}
	}
	return n
}

func unpackFixed(v Variant, fixed []byte, rec *model.Record) error {
	off := 0
	for _, f := range v.Fields {
		switch f.Name {
		case "tp":
			off++
		case "de":
			rec.SetDe(int32(fixed[off]))
			off++
		case "qt":
			amt, n, err := readScalar(f.Kind, fixed[off:], rec.DeValue())
			if err != nil {
				return err
			}
			rec.Qt = &amt
			off += n
		case "pa":
			b := fixed[off] != 0
			rec.Pa = &b
			off++
		case "mi":
			b := fixed[off] != 0
			rec.Mi = &b
			off++
		case "id":
			rec.ID = hex.EncodeToString(trimTrailingZeros(fixed[off : off+f.Width]))
			off += f.Width
		case "tx":
			rec.Dt = hex.EncodeToString(trimTrailingZeros(fixed[off : off+f.Width]))
			off += f.Width
		case "ch":
			rec.Ch = int(fixed[off])
			off++
		default:
			return errs.New(errs.InvalidSmartbridge, "unsupported fixed field "+f.Name)
		}
	}
	return nil
}

func trimTrailingZeros(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

func readScalar(kind FieldKind, buf []byte, scale int32) (model.Amount, int, error) {
	switch kind {
	case KindU64:
		if len(buf) < 8 {
			return model.Amount{}, 0, errs.New(errs.InvalidSmartbridge, "truncated u64 qt")
		}
		v := binary.LittleEndian.Uint64(buf[:8])
		return model.NewAmount(int64(v), scale), 8, nil
	case KindF64:
		if len(buf) < 8 {
			return model.Amount{}, 0, errs.New(errs.InvalidSmartbridge, "truncated f64 qt")
		}
		bits := binary.LittleEndian.Uint64(buf[:8])
		f := math.Float64frombits(bits)
		amt, err := model.AmountFromString(strconv.FormatFloat(f, 'f', -1, 64), scale)
		return amt, 8, err
	default:
		return model.Amount{}, 0, errs.New(errs.InvalidSmartbridge, "unsupported qt kind")
	}
}

// unpackVaria is the inverse of packVaria: GENESIS recovers its
// sy/na/du/no as a flat positional tuple; every other HasVaria op
// (ADDMETA) recovers a leading chunk byte plus the metadata [k1,v1,...]
// varia.
func unpackVaria(rec *model.Record, op model.Op, varia string) error {
	if len(varia) == 0 {
		return nil
	}
	raw, err := hex.DecodeString(varia)
	if err != nil {
		// varia is raw bytes appended after the hex fixed section, not
		// itself hex-encoded; accept the literal bytes.
		raw = []byte(varia)
	}
	if op == model.OpGenesis {
		values, err := unpackPositional(raw, 4)
		if err != nil {
			return errs.Wrap(errs.InvalidSmartbridge, err, "decode genesis varia")
		}
		rec.Sy, rec.Na, rec.Du, rec.No = values[0], values[1], values[2], values[3]
		return nil
	}
	if len(raw) < 1 {
		return errs.New(errs.InvalidSmartbridge, "empty varia")
	}
	rec.Ch = int(raw[0])
	pairs, err := model.UnpackMetadata(raw[1:])
	if err != nil {
		return errs.Wrap(errs.InvalidSmartbridge, err, "decode varia metadata")
	}
	if len(pairs) == 1 {
		rec.Na = pairs[0].Key
		rec.Dt = pairs[0].Value
	} else if len(pairs) > 1 {
		bag := make(map[string]string, len(pairs))
		for _, p := range pairs {
			bag[p.Key] = p.Value
		}
		b, err := json.Marshal(bag)
		if err != nil {
			return errs.Wrap(errs.InvalidSmartbridge, err, "encode varia bag")
		}
		rec.Dt = string(b)
	}
	return nil
}

// unpackPositional decodes exactly n length-prefixed strings in order,
// the inverse of packPositional.
func unpackPositional(raw []byte, n int) ([]string, error) {
	out := make([]string, 0, n)
	i := 0
	for len(out) < n {
		if i >= len(raw) {
			return nil, fmt.Errorf("varia tuple truncated: got %d of %d fields", len(out), n)
		}
		size := int(raw[i])
		i++
		if i+size > len(raw) {
			return nil, fmt.Errorf("varia field length prefix overruns buffer")
		}
		out = append(out, string(raw[i:i+size]))
		i += size
	}
	return out, nil
}
