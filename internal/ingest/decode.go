package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/synnergy-labs/slpindexer/internal/codec"
	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

// jsonVendorField is the plain-JSON vendor field shape the parser tries
// before falling back to the smartbridge codec (spec.md §4.5: "tries to
// parse the vendor field as JSON first, else through the smartbridge
// codec"). It is a single-key object naming the family, carrying the
// operation code plus whichever operation-specific fields that op takes.
type jsonVendorField map[model.Family]jsonOperation

type jsonOperation struct {
	Tp model.Op `json:"tp"`
	De *int32   `json:"de,omitempty"`
	Qt *string  `json:"qt,omitempty"`
	ID string   `json:"id,omitempty"`
	Sy string   `json:"sy,omitempty"`
	Na string   `json:"na,omitempty"`
	Du string   `json:"du,omitempty"`
	No string   `json:"no,omitempty"`
	Pa *bool    `json:"pa,omitempty"`
	Mi *bool    `json:"mi,omitempty"`
	Ch int      `json:"ch,omitempty"`
	Dt string   `json:"dt,omitempty"`
}

// DecodeVendorField parses a base-layer transfer's vendor field into a
// partially-populated Record, trying plain JSON first and falling back to
// the smartbridge codec (spec.md §4.5). scale resolves a decimal `qt`
// string at the token's current scale, where known; GENESIS records carry
// their own `de` and so need no external scale.
func DecodeVendorField(table *codec.FormatTable, vendorField string, scale func(tokenID string) int32) (*model.Record, error) {
	if rec, ok, err := decodeJSON(vendorField, scale); ok {
		return rec, err
	}
	rec, err := codec.Unpack(table, vendorField)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeJSON(vendorField string, scale func(tokenID string) int32) (*model.Record, bool, error) {
	var raw jsonVendorField
	if err := json.Unmarshal([]byte(vendorField), &raw); err != nil {
		return nil, false, nil
	}
	if len(raw) != 1 {
		return nil, false, nil
	}
	var family model.Family
	var op jsonOperation
	for f, o := range raw {
		family, op = f, o
	}
	if family != model.SLP1 && family != model.SLP2 {
		return nil, false, nil
	}

	rec := &model.Record{SlpType: family, Tp: op.Tp, ID: op.ID, Sy: op.Sy, Na: op.Na, Du: op.Du, No: op.No, Ch: op.Ch, Dt: op.Dt}
	if op.De != nil {
		rec.SetDe(*op.De)
	}
	if op.Pa != nil {
		rec.Pa = op.Pa
	}
	if op.Mi != nil {
		rec.Mi = op.Mi
	}
	if op.Qt != nil {
		tokenScale := int32(0)
		if rec.DeSet() {
			tokenScale = rec.DeValue()
		} else if scale != nil {
			tokenScale = scale(op.ID)
		}
		amt, err := model.AmountFromString(*op.Qt, tokenScale)
		if err != nil {
			return nil, true, errs.Wrap(errs.InvalidSmartbridge, err, "qt: invalid decimal")
		}
		rec.Qt = &amt
	}
	return rec, true, nil
}

// DeriveGenesisID computes `H(slp_type.upper() || "." || symbol || "." ||
// height || "." || txid)` (spec.md §4.5), truncated to the 16 bytes a
// 32-hex token id requires (spec.md §6 "id 32-hex").
func DeriveGenesisID(hash func([]byte) []byte, family model.Family, symbol string, height uint64, txid string) string {
	seed := fmt.Sprintf("%s.%s.%d.%s", strings.ToUpper(string(family)), symbol, height, txid)
	sum := hash([]byte(seed))
	if len(sum) > 16 {
		sum = sum[:16]
	}
	return fmt.Sprintf("%x", sum)
}
