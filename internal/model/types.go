package model

import "fmt"

// Family is the closed enum of protocol families a Record belongs to.
type Family string

const (
	SLP1 Family = "_slp1"
	SLP2 Family = "_slp2"
)

// Op is the closed enum of per-family operation codes (spec.md §3).
type Op string

const (
	OpGenesis     Op = "GENESIS"
	OpSend        Op = "SEND"
	OpMint        Op = "MINT"
	OpBurn        Op = "BURN"
	OpFreeze      Op = "FREEZE"
	OpUnfreeze    Op = "UNFREEZE"
	OpPause       Op = "PAUSE"
	OpResume      Op = "RESUME"
	OpNewOwner    Op = "NEWOWNER"
	OpAuthMeta    Op = "AUTHMETA"
	OpAddMeta     Op = "ADDMETA"
	OpVoidMeta    Op = "VOIDMETA"
	OpRevokeMeta  Op = "REVOKEMETA"
	OpClone       Op = "CLONE"
)

// SLP1Ops and SLP2Ops list the operations valid for each family (spec.md
// §6). Pre-acceptance field validation checks tp against the milestone's
// "input types" table, not against these maps.
var SLP1Ops = map[Op]bool{
	OpGenesis: true, OpSend: true, OpMint: true, OpBurn: true,
	OpFreeze: true, OpUnfreeze: true, OpPause: true, OpResume: true,
	OpNewOwner: true,
}

var SLP2Ops = map[Op]bool{
	OpGenesis: true, OpNewOwner: true, OpPause: true, OpResume: true,
	OpAuthMeta: true, OpAddMeta: true, OpVoidMeta: true, OpRevokeMeta: true,
	OpClone: true,
}

// Legit is the tri-state outcome of contract-engine replay: unset (not yet
// replayed) transitions exactly once to true or false (spec.md §3 J2).
type Legit int8

const (
	LegitUnset Legit = 0
	LegitTrue  Legit = 1
	LegitFalse Legit = 2
)

// BlockStamp is the "H#I" rendering of a (height, index) pair used for the
// wallet monotonicity check (spec.md Glossary).
type BlockStamp struct {
	Height uint64
	Index  uint16
}

func (b BlockStamp) String() string { return fmt.Sprintf("%d#%d", b.Height, b.Index) }

// Greater reports whether b is strictly greater than other in (height,
// index) lexicographic order.
func (b BlockStamp) Greater(other BlockStamp) bool {
	if b.Height != other.Height {
		return b.Height > other.Height
	}
	return b.Index > other.Index
}

// Record is a fully-ordered, append-only journal entry (spec.md §3).
type Record struct {
	Height   uint64 `json:"height" bson:"height"`
	Index    uint16 `json:"index" bson:"index"`
	Txid     string `json:"txid" bson:"txid"`
	SlpType  Family `json:"slp_type" bson:"slp_type"`
	Tp       Op     `json:"tp" bson:"tp"`
	ID       string `json:"id" bson:"id"`
	Emitter  string `json:"emitter" bson:"emitter"`
	Receiver string `json:"receiver" bson:"receiver"`
	Cost     uint64 `json:"cost" bson:"cost"`
	// Timestamp is unix seconds with sub-block interpolation (spec.md §4.5).
	Timestamp float64 `json:"timestamp" bson:"timestamp"`

	// Operation-specific fields, all optional depending on (SlpType, Tp).
	De decimal128Int `json:"de,omitempty" bson:"de,omitempty"`
	Qt *Amount       `json:"qt,omitempty" bson:"qt,omitempty"`
	Sy string        `json:"sy,omitempty" bson:"sy,omitempty"`
	Na string        `json:"na,omitempty" bson:"na,omitempty"`
	Du string        `json:"du,omitempty" bson:"du,omitempty"`
	No string        `json:"no,omitempty" bson:"no,omitempty"`
	Pa *bool         `json:"pa,omitempty" bson:"pa,omitempty"`
	Mi *bool         `json:"mi,omitempty" bson:"mi,omitempty"`
	Ch int           `json:"ch,omitempty" bson:"ch,omitempty"`
	Dt string        `json:"dt,omitempty" bson:"dt,omitempty"`

	Legit   Legit  `json:"legit" bson:"legit"`
	Comment string `json:"comment,omitempty" bson:"comment,omitempty"`
	PoH     []byte `json:"poh,omitempty" bson:"poh,omitempty"`
}

// decimal128Int models the `de` field: an integer 0..8 that, once stored,
// behaves like the database's native decimal type per spec.md §3's
// "Conversions ... preserve the scale exactly" requirement. A pointer-like
// presence flag is needed because 0 is a legitimate scale.
type decimal128Int struct {
	Set   bool
	Value int32
}

func (d decimal128Int) MarshalJSONValue() (int32, bool) { return d.Value, d.Set }

// DeSet reports whether De was populated on this record.
func (r *Record) DeSet() bool { return r.De.Set }

// DeValue returns the populated De value, or 0 if unset.
func (r *Record) DeValue() int32 { return r.De.Value }

// SetDe stores the token's declared scale on the record.
func (r *Record) SetDe(v int32) { r.De = decimal128Int{Set: true, Value: v} }

// Stamp renders this record's blockstamp.
func (r *Record) Stamp() BlockStamp { return BlockStamp{Height: r.Height, Index: r.Index} }

// Contract is the derived, per-token descriptor (spec.md §3).
type Contract struct {
	TokenID  string `json:"tokenId" bson:"tokenId"`
	Height   uint64 `json:"height" bson:"height"`
	Index    uint16 `json:"index" bson:"index"`
	Type     Family `json:"type" bson:"type"`
	Name     string `json:"name" bson:"name"`
	Symbol   string `json:"symbol" bson:"symbol"`
	Owner    string `json:"owner" bson:"owner"`
	Document string `json:"document" bson:"document"`
	Notes    string `json:"notes" bson:"notes"`
	Paused   bool   `json:"paused" bson:"paused"`

	// SLP1-only counters, all at the token's declared scale.
	PauseCapable bool    `json:"pauseCapable" bson:"pauseCapable"`
	MintCapable  bool    `json:"mintCapable" bson:"mintCapable"`
	Scale        int32   `json:"scale" bson:"scale"`
	GlobalSupply *Amount `json:"globalSupply,omitempty" bson:"globalSupply,omitempty"`
	Minted       *Amount `json:"minted,omitempty" bson:"minted,omitempty"`
	Burned       *Amount `json:"burned,omitempty" bson:"burned,omitempty"`
	Crossed      *Amount `json:"crossed,omitempty" bson:"crossed,omitempty"`
}

// SLP1Wallet is per-(address,tokenId) fungible balance state (spec.md §3).
type SLP1Wallet struct {
	Address    string     `json:"address" bson:"address"`
	TokenID    string     `json:"tokenId" bson:"tokenId"`
	Balance    Amount     `json:"balance" bson:"balance"`
	BlockStamp BlockStamp `json:"blockStamp" bson:"blockStamp"`
	Owner      bool       `json:"owner" bson:"owner"`
	Frozen     bool       `json:"frozen" bson:"frozen"`
}

// SLP2Wallet is per-(address,tokenId) metadata-editor state (spec.md §3).
type SLP2Wallet struct {
	Address    string     `json:"address" bson:"address"`
	TokenID    string     `json:"tokenId" bson:"tokenId"`
	BlockStamp BlockStamp `json:"blockStamp" bson:"blockStamp"`
	Owner      bool       `json:"owner" bson:"owner"`
	Metadata   []byte     `json:"metadata" bson:"metadata"`
}

// Rejected is a copy of a Record that failed an engine precondition, with
// the name of the first failed assertion (spec.md §3).
type Rejected struct {
	Record
	RejectedComment string `json:"comment" bson:"comment"`
}

// ProcessingMark drives back-fill restart (spec.md §3).
type ProcessingMark struct {
	LastParsedBlock uint64 `json:"last parsed block"`
	Peer            string `json:"peer"`
	Rebuild         bool   `json:"rebuild"`
}
