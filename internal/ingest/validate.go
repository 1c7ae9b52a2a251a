package ingest

import (
	"fmt"
	"regexp"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

var (
	idPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	syPattern = regexp.MustCompile(`^[0-9a-zA-Z]{3,8}$`)
	naPattern = regexp.MustCompile(`^.{3,24}$`)
	duPattern = regexp.MustCompile(`^(https?|ipfs|ipns|dweb)://.{3,180}$`)
	noPattern = regexp.MustCompile(`^.{0,180}$`)
	dtPattern = regexp.MustCompile(`^.{0,256}$`)
)

// ValidateFields runs the pre-acceptance field validation of spec.md §6
// against a partially-decoded record, before it is ever appended to the
// journal. The first failing field is returned as a FieldValidationFailure.
func ValidateFields(net *config.Network, height uint64, rec *model.Record) error {
	if rec.ID != "" && !idPattern.MatchString(rec.ID) {
		return errs.New(errs.FieldValidationFailure, "id: expected 32 hex characters")
	}
	if rec.DeSet() {
		if rec.DeValue() < 0 || rec.DeValue() > 8 {
			return errs.New(errs.FieldValidationFailure, "de: expected 0..8")
		}
	}
	if rec.Sy != "" && !syPattern.MatchString(rec.Sy) {
		return errs.New(errs.FieldValidationFailure, "sy: expected 3-8 alphanumeric characters")
	}
	if rec.Na != "" && !naPattern.MatchString(rec.Na) {
		return errs.New(errs.FieldValidationFailure, "na: expected 3-24 characters")
	}
	if rec.Du != "" && !duPattern.MatchString(rec.Du) {
		return errs.New(errs.FieldValidationFailure, "du: expected a (https|http|ipfs|ipns|dweb) URI, 3-180 chars")
	}
	if !noPattern.MatchString(rec.No) {
		return errs.New(errs.FieldValidationFailure, "no: expected at most 180 characters")
	}
	if !dtPattern.MatchString(rec.Dt) {
		return errs.New(errs.FieldValidationFailure, "dt: expected at most 256 characters")
	}
	if rec.Qt != nil && !rec.Qt.IsIntegral() && requiresIntegralQt(rec.Tp) {
		return errs.New(errs.FieldValidationFailure, "qt: expected an integral quantity")
	}
	if rec.Tp == "" {
		return errs.New(errs.FieldValidationFailure, "tp: required")
	}
	inputTypes, ok := net.Ask("input types", &height)
	if !ok {
		return errs.New(errs.FieldValidationFailure, "tp: no input types configured at this height")
	}
	if !tpRecognised(inputTypes, rec.SlpType, rec.Tp) {
		return errs.New(errs.FieldValidationFailure, fmt.Sprintf("tp: %q not in milestone input types for %s", rec.Tp, rec.SlpType))
	}
	return nil
}

func requiresIntegralQt(op model.Op) bool {
	switch op {
	case model.OpGenesis, model.OpBurn, model.OpMint:
		return true
	default:
		return false
	}
}

func tpRecognised(inputTypes interface{}, family model.Family, op model.Op) bool {
	top, ok := inputTypes.(map[string]interface{})
	if !ok {
		return false
	}
	famMap, ok := top[string(family)].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = famMap[string(op)]
	return ok
}

// DeniedTicker reports whether sy collides with the milestone's denied
// ticker list (spec.md §4.2 "denied tickers"), checked at GENESIS.
func DeniedTicker(net *config.Network, height uint64, symbol string) bool {
	v, ok := net.Ask("denied tickers", &height)
	if !ok {
		return false
	}
	list, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s == symbol {
			return true
		}
	}
	return false
}
