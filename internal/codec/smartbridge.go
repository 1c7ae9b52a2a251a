// Package codec implements the smartbridge wire format: packing and
// unpacking SLP1/SLP2 contract payloads to and from a "_slpN://"-prefixed,
// length-budgeted ASCII string (spec.md §4.1). The fixed-struct formats are
// milestone-driven (internal/config), so this package takes a FormatTable
// rather than hard-coding one variant per operation.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

// MaxWireLength is the hard ceiling spec.md §4.1 places on a smartbridge
// string, matching a base-layer vendor field's practical limit.
const MaxWireLength = 256

// FieldKind enumerates the scalar kinds the fixed-struct interpreter
// understands, replacing the teacher corpus's struct-pack format strings
// with a small closed variant set (spec.md Design Notes).
type FieldKind int

const (
	KindU8 FieldKind = iota
	KindU16
	KindU32
	KindU64
	KindF64
	KindBool
	KindFixedBytes // fixed-width byte string, e.g. 16s or 128s
)

// FieldSpec describes one field of a fixed-struct variant.
type FieldSpec struct {
	Name  string
	Kind  FieldKind
	Width int // byte width for KindFixedBytes
}

// Variant is the fixed-struct shape for one (family, tp) pair at a given
// milestone.
type Variant struct {
	Family model.Family
	Op     model.Op
	Fields []FieldSpec
	// HasVaria marks variants whose wire form is followed by a varia
	// section of length-prefixed strings (e.g. SLP2 ADDMETA).
	HasVaria bool
}

// FormatTable maps (family, first fixed byte == Op's wire code) to a
// Variant, mirroring the milestone-driven format table of spec.md §4.1/4.2.
type FormatTable struct {
	Variants map[model.Family]map[byte]Variant
	// OpCode and CodeOp translate between the wire's single-byte tp code
	// and the closed Op enum; this is the milestone's "input types"
	// ordered code->opcode map (spec.md §4.2).
	OpCode map[model.Family]map[model.Op]byte
	CodeOp map[model.Family]map[byte]model.Op
	// Regex gates the overall wire string shape (spec.md §4.1/§6).
	Regex *regexp.Regexp
}

var wirePrefix = map[model.Family]string{
	model.SLP1: "_slp1://",
	model.SLP2: "_slp2://",
}

// Pack serialises rec's operation-specific fields into a smartbridge
// string using the variant selected by (rec.SlpType, rec.Tp) in table.
func Pack(table *FormatTable, rec *model.Record) (string, error) {
	famTable, ok := table.Variants[rec.SlpType]
	if !ok {
		return "", errs.New(errs.InvalidSmartbridge, "unknown slp_type")
	}
	codeMap, ok := table.OpCode[rec.SlpType]
	if !ok {
		return "", errs.New(errs.InvalidSmartbridge, "no opcode map for slp_type")
	}
	code, ok := codeMap[rec.Tp]
	if !ok {
		return "", errs.New(errs.InvalidSmartbridge, "unknown op "+string(rec.Tp))
	}
	variant, ok := famTable[code]
	if !ok {
		return "", errs.New(errs.InvalidSmartbridge, "no variant for op")
	}

	fixed, err := packFixed(variant, rec, code)
	if err != nil {
		return "", err
	}

	var varia []byte
	if variant.HasVaria {
		varia, err = packVaria(rec, variant.Op)
		if err != nil {
			return "", err
		}
	}

	wire := wirePrefix[rec.SlpType] + hex.EncodeToString(fixed) + string(varia)
	if len(wire) > MaxWireLength {
		return "", errs.New(errs.InvalidSmartbridge, fmt.Sprintf("wire length %d exceeds %d", len(wire), MaxWireLength))
	}
	return wire, nil
}

func packFixed(v Variant, rec *model.Record, code byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, f := range v.Fields {
		switch f.Name {
		case "tp":
			buf.WriteByte(code)
		case "de":
			buf.WriteByte(byte(rec.DeValue()))
		case "qt":
			if rec.Qt == nil {
				return nil, errs.New(errs.InvalidSmartbridge, "qt required")
			}
			if err := writeScalar(buf, f.Kind, rec.Qt); err != nil {
				return nil, err
			}
		case "pa":
			writeBool(buf, rec.Pa != nil && *rec.Pa)
		case "mi":
			writeBool(buf, rec.Mi != nil && *rec.Mi)
		case "id":
			if err := writeFixedHex(buf, rec.ID, f.Width); err != nil {
				return nil, err
			}
		case "tx":
			if err := writeFixedHex(buf, rec.Dt, f.Width); err != nil {
				return nil, err
			}
		case "ch":
			buf.WriteByte(byte(rec.Ch))
		default:
			return nil, errs.New(errs.InvalidSmartbridge, "unsupported fixed field "+f.Name)
		}
	}
	return buf.Bytes(), nil
}

func writeScalar(buf *bytes.Buffer, kind FieldKind, amount *model.Amount) error {
	switch kind {
	case KindU64:
		if !amount.IsIntegral() {
			return errs.New(errs.InvalidSmartbridge, "qt not integral for u64 variant")
		}
		units := amount.String()
		var whole int64
		if _, err := fmt.Sscanf(units, "%d", &whole); err != nil {
			return errs.Wrap(errs.InvalidSmartbridge, err, "qt not integral for u64 variant")
		}
		return binary.Write(buf, binary.LittleEndian, uint64(whole))
	case KindF64:
		var f float64
		if _, err := fmt.Sscanf(amount.String(), "%g", &f); err != nil {
			return errs.Wrap(errs.InvalidSmartbridge, err, "qt not numeric for f64 variant")
		}
		return binary.Write(buf, binary.LittleEndian, f)
	default:
		return errs.New(errs.InvalidSmartbridge, "unsupported qt kind")
	}
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeFixedHex(buf *bytes.Buffer, hexStr string, width int) error {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return errs.Wrap(errs.InvalidSmartbridge, err, "field is not hex")
	}
	if len(raw) > width {
		return errs.New(errs.InvalidSmartbridge, "field wider than fixed slot")
	}
	padded := make([]byte, width)
	copy(padded, raw)
	buf.Write(padded)
	return nil
}

// packVaria packs the variant-specific varia section. GENESIS (both SLP1
// and SLP2) carries its sy/na/du/no as a flat, positional sequence of
// length-prefixed strings (the original's `_pack_varia(sy, na, du, no)`);
// every other HasVaria op (ADDMETA) carries a leading chunk byte followed
// by the metadata [k1,v1,...] varia.
func packVaria(rec *model.Record, op model.Op) ([]byte, error) {
	if op == model.OpGenesis {
		return packPositional(rec.Sy, rec.Na, rec.Du, rec.No)
	}
	var pairs []model.MetaPair
	if rec.Na != "" || rec.Dt != "" {
		pairs = append(pairs, model.MetaPair{Key: rec.Na, Value: rec.Dt})
	}
	packed, err := model.PackMetadata(pairs)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidSmartbridge, err, "pack varia")
	}
	return append([]byte{byte(rec.Ch)}, packed...), nil
}

// packPositional length-prefixes each string in order, without the
// by-length sort model.PackMetadata applies to key/value pairs — GENESIS
// varia is a fixed positional tuple, not a sortable bag.
func packPositional(values ...string) ([]byte, error) {
	var out []byte
	for _, v := range values {
		b, err := lengthPrefixedString(v)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidSmartbridge, err, "pack varia")
		}
		out = append(out, b...)
	}
	return out, nil
}

func lengthPrefixedString(s string) ([]byte, error) {
	if len(s) > 255 {
		return nil, fmt.Errorf("varia field exceeds 255 bytes: %d", len(s))
	}
	return append([]byte{byte(len(s))}, []byte(s)...), nil
}
