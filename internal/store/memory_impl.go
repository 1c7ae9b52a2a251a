package store

import (
	"context"
	"fmt"

	"github.com/synnergy-labs/slpindexer/internal/model"
)

type memJournal Memory

func (j *memJournal) Append(_ context.Context, rec *model.Record) error {
	m := (*Memory)(j)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stampKey(rec.Height, rec.Index)
	if _, exists := m.journal[key]; exists {
		return fmt.Errorf("journal: (height,index) %s already exists", key)
	}
	cp := *rec
	m.journal[key] = &cp
	m.order = append(m.order, key)
	return nil
}

func (j *memJournal) SetLegit(_ context.Context, height uint64, index uint16, legit model.Legit, comment string, poh []byte) error {
	m := (*Memory)(j)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stampKey(height, index)
	rec, ok := m.journal[key]
	if !ok {
		return fmt.Errorf("journal: no record at %s", key)
	}
	if rec.Legit != model.LegitUnset {
		return fmt.Errorf("journal: record at %s already has legit=%v, refusing re-application", key, rec.Legit)
	}
	rec.Legit = legit
	rec.Comment = comment
	rec.PoH = poh
	return nil
}

func (j *memJournal) Get(_ context.Context, height uint64, index uint16) (*model.Record, bool, error) {
	m := (*Memory)(j)
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.journal[stampKey(height, index)]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	return &cp, true, nil
}

func (j *memJournal) LastLegitPoH(_ context.Context, family model.Family) ([]byte, error) {
	m := (*Memory)(j)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.journal[m.order[i]]
		if rec.SlpType == family && rec.Legit == model.LegitTrue {
			return rec.PoH, nil
		}
	}
	return nil, nil
}

func (j *memJournal) All(_ context.Context) ([]*model.Record, error) {
	m := (*Memory)(j)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Record, 0, len(m.order))
	for _, key := range m.order {
		cp := *m.journal[key]
		out = append(out, &cp)
	}
	return out, nil
}

type memContracts Memory

func (c *memContracts) Insert(_ context.Context, ct *model.Contract) error {
	m := (*Memory)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.contracts[ct.TokenID]; exists {
		return fmt.Errorf("contracts: tokenId %s already exists", ct.TokenID)
	}
	cp := *ct
	m.contracts[ct.TokenID] = &cp
	return nil
}

func (c *memContracts) Get(_ context.Context, tokenID string) (*model.Contract, bool, error) {
	m := (*Memory)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	ct, ok := m.contracts[tokenID]
	if !ok {
		return nil, false, nil
	}
	cp := *ct
	return &cp, true, nil
}

func (c *memContracts) Update(_ context.Context, ct *model.Contract) error {
	m := (*Memory)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.contracts[ct.TokenID]; !exists {
		return fmt.Errorf("contracts: tokenId %s does not exist", ct.TokenID)
	}
	cp := *ct
	m.contracts[ct.TokenID] = &cp
	return nil
}

type memSLP1 Memory

func (s *memSLP1) Get(_ context.Context, address, tokenID string) (*model.SLP1Wallet, bool, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.slp1[walletKey(address, tokenID)]
	if !ok {
		return nil, false, nil
	}
	cp := *w
	return &cp, true, nil
}

func (s *memSLP1) Upsert(_ context.Context, w *model.SLP1Wallet) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.slp1[walletKey(w.Address, w.TokenID)] = &cp
	return nil
}

func (s *memSLP1) ByToken(_ context.Context, tokenID string) ([]*model.SLP1Wallet, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SLP1Wallet
	for _, w := range m.slp1 {
		if w.TokenID == tokenID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSLP2 Memory

func (s *memSLP2) Get(_ context.Context, address, tokenID string) (*model.SLP2Wallet, bool, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.slp2[walletKey(address, tokenID)]
	if !ok {
		return nil, false, nil
	}
	cp := *w
	return &cp, true, nil
}

func (s *memSLP2) Upsert(_ context.Context, w *model.SLP2Wallet) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.slp2[walletKey(w.Address, w.TokenID)] = &cp
	return nil
}

func (s *memSLP2) Delete(_ context.Context, address, tokenID string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slp2, walletKey(address, tokenID))
	return nil
}

func (s *memSLP2) ByToken(_ context.Context, tokenID string) ([]*model.SLP2Wallet, error) {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SLP2Wallet
	for _, w := range m.slp2 {
		if w.TokenID == tokenID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memRejected Memory

func (r *memRejected) Insert(_ context.Context, rej *model.Rejected) error {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stampKey(rej.Height, rej.Index)
	cp := *rej
	m.rejected[key] = &cp
	return nil
}

func (r *memRejected) ByToken(_ context.Context, tokenID string) ([]*model.Rejected, error) {
	m := (*Memory)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Rejected
	for _, rej := range m.rejected {
		if rej.ID == tokenID {
			cp := *rej
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memMark Memory

func (mk *memMark) Get(_ context.Context) (*model.ProcessingMark, error) {
	m := (*Memory)(mk)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mark == nil {
		return &model.ProcessingMark{}, nil
	}
	cp := *m.mark
	return &cp, nil
}

func (mk *memMark) Set(_ context.Context, pm *model.ProcessingMark) error {
	m := (*Memory)(mk)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pm
	m.mark = &cp
	return nil
}

var (
	_ JournalStore   = (*memJournal)(nil)
	_ ContractStore  = (*memContracts)(nil)
	_ SLP1Store      = (*memSLP1)(nil)
	_ SLP2Store      = (*memSLP2)(nil)
	_ RejectedStore  = (*memRejected)(nil)
	_ MarkStore      = (*memMark)(nil)
	_ Collections    = (*Memory)(nil)
)
