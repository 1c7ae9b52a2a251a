package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synnergy-labs/slpindexer/internal/codec"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

// FormatTable builds the milestone-driven codec.FormatTable active at
// height, from the "input types" (ordered code->opcode map), "slp formats"
// (per-family, per-op field specs) and "serialized regex" config keys
// spec.md §4.1/§4.2 name. It replaces the teacher corpus's struct-pack
// format strings with the closed FieldKind interpreter codec defines.
func (n *Network) FormatTable(height uint64) (*codec.FormatTable, error) {
	re, err := n.Regex()
	if err != nil {
		return nil, err
	}

	inputTypes, ok := n.Ask("input types", &height)
	if !ok {
		return nil, fmt.Errorf("config %q has no input types at height %d", n.Name, height)
	}
	formats, ok := n.Ask("slp formats", &height)
	if !ok {
		return nil, fmt.Errorf("config %q has no slp formats at height %d", n.Name, height)
	}

	table := &codec.FormatTable{
		Regex:    re,
		OpCode:   map[model.Family]map[model.Op]byte{},
		CodeOp:   map[model.Family]map[byte]model.Op{},
		Variants: map[model.Family]map[byte]codec.Variant{},
	}

	codesByFamily, err := decodeInputTypes(inputTypes)
	if err != nil {
		return nil, fmt.Errorf("config %q input types: %w", n.Name, err)
	}
	for family, codes := range codesByFamily {
		table.OpCode[family] = map[model.Op]byte{}
		table.CodeOp[family] = map[byte]model.Op{}
		for op, code := range codes {
			table.OpCode[family][op] = code
			table.CodeOp[family][code] = op
		}
	}

	formatsByFamily, err := decodeFormats(formats, codesByFamily)
	if err != nil {
		return nil, fmt.Errorf("config %q slp formats: %w", n.Name, err)
	}
	table.Variants = formatsByFamily

	return table, nil
}

func decodeInputTypes(raw interface{}) (map[model.Family]map[model.Op]byte, error) {
	top, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a mapping of family -> op -> code")
	}
	out := make(map[model.Family]map[model.Op]byte, len(top))
	for famKey, famVal := range top {
		famMap, ok := famVal.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("family %q: expected a mapping of op -> code", famKey)
		}
		ops := make(map[model.Op]byte, len(famMap))
		for opKey, codeVal := range famMap {
			code, err := toByte(codeVal)
			if err != nil {
				return nil, fmt.Errorf("family %q op %q: %w", famKey, opKey, err)
			}
			ops[model.Op(opKey)] = code
		}
		out[model.Family(famKey)] = ops
	}
	return out, nil
}

func decodeFormats(raw interface{}, codes map[model.Family]map[model.Op]byte) (map[model.Family]map[byte]codec.Variant, error) {
	top, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a mapping of family -> op -> field list")
	}
	out := make(map[model.Family]map[byte]codec.Variant, len(top))
	for famKey, famVal := range top {
		family := model.Family(famKey)
		famMap, ok := famVal.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("family %q: expected a mapping of op -> field list", famKey)
		}
		variants := make(map[byte]codec.Variant, len(famMap))
		for opKey, spec := range famMap {
			op := model.Op(opKey)
			code, ok := codes[family][op]
			if !ok {
				return nil, fmt.Errorf("family %q op %q: no input type code assigned", famKey, opKey)
			}
			fields, hasVaria, err := decodeFieldSpecs(spec)
			if err != nil {
				return nil, fmt.Errorf("family %q op %q: %w", famKey, opKey, err)
			}
			variants[code] = codec.Variant{Family: family, Op: op, Fields: fields, HasVaria: hasVaria}
		}
		out[family] = variants
	}
	return out, nil
}

// decodeFieldSpecs parses a "slp formats" entry: a list of kind strings
// such as "u8", "u64", "bool", "fixed16", "fixed128", optionally followed
// by the literal "varia" marking a trailing length-prefixed section
// (spec.md §4.1's ADDMETA/VOIDMETA shapes).
func decodeFieldSpecs(raw interface{}) ([]codec.FieldSpec, bool, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false, fmt.Errorf("expected a list of field kinds")
	}
	fields := make([]codec.FieldSpec, 0, len(list))
	hasVaria := false
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false, fmt.Errorf("field %d: expected a string kind", i)
		}
		if s == "varia" {
			hasVaria = true
			continue
		}
		kind, width, err := parseFieldKind(s)
		if err != nil {
			return nil, false, fmt.Errorf("field %d: %w", i, err)
		}
		name := fmt.Sprintf("f%d", i)
		if i == 0 {
			name = "tp"
		}
		fields = append(fields, codec.FieldSpec{Name: name, Kind: kind, Width: width})
	}
	return fields, hasVaria, nil
}

func parseFieldKind(s string) (codec.FieldKind, int, error) {
	switch s {
	case "u8":
		return codec.KindU8, 0, nil
	case "u16":
		return codec.KindU16, 0, nil
	case "u32":
		return codec.KindU32, 0, nil
	case "u64":
		return codec.KindU64, 0, nil
	case "f64":
		return codec.KindF64, 0, nil
	case "bool":
		return codec.KindBool, 0, nil
	}
	if strings.HasPrefix(s, "fixed") {
		width, err := strconv.Atoi(strings.TrimPrefix(s, "fixed"))
		if err != nil {
			return 0, 0, fmt.Errorf("bad fixed-width kind %q: %w", s, err)
		}
		return codec.KindFixedBytes, width, nil
	}
	return 0, 0, fmt.Errorf("unknown field kind %q", s)
}

func toByte(v interface{}) (byte, error) {
	switch n := v.(type) {
	case float64:
		return byte(n), nil
	case int:
		return byte(n), nil
	case string:
		parsed, err := strconv.ParseUint(n, 10, 8)
		if err != nil {
			return 0, err
		}
		return byte(parsed), nil
	}
	return 0, fmt.Errorf("unexpected code type %T", v)
}
