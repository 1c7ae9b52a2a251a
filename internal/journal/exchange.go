package journal

import (
	"context"
	"fmt"

	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// ExchangeSLP1 moves qt of tokenId from src to dst, crediting dst first
// and debiting src only if the credit persisted, reversing the credit on
// a debit failure (spec.md §4.3 "Exchange atomicity"). It returns true
// iff both sides persisted. Multi-document changes use this compensating
// action rather than a multi-statement transaction, per spec.md §5.
func ExchangeSLP1(ctx context.Context, wallets store.SLP1Store, tokenID, src, dst string, qt model.Amount, stamp model.BlockStamp) (bool, error) {
	dstWallet, _, err := wallets.Get(ctx, dst, tokenID)
	if err != nil {
		return false, fmt.Errorf("fetch dst wallet: %w", err)
	}
	if dstWallet == nil {
		dstWallet = &model.SLP1Wallet{Address: dst, TokenID: tokenID, Balance: model.Zero(qt.Scale())}
	}
	creditedBalance := dstWallet.Balance.Add(qt)
	credited := *dstWallet
	credited.Balance = creditedBalance
	credited.BlockStamp = stamp
	if err := wallets.Upsert(ctx, &credited); err != nil {
		return false, fmt.Errorf("credit dst: %w", err)
	}

	srcWallet, ok, err := wallets.Get(ctx, src, tokenID)
	if err != nil || !ok {
		// reverse the credit: src must exist to be debited at all.
		_ = wallets.Upsert(ctx, dstWallet)
		if err != nil {
			return false, fmt.Errorf("fetch src wallet: %w", err)
		}
		return false, fmt.Errorf("exchange: src wallet %s/%s does not exist", src, tokenID)
	}
	newSrcBalance := srcWallet.Balance.Sub(qt)
	if newSrcBalance.IsNegative() {
		// reverse the credit.
		_ = wallets.Upsert(ctx, dstWallet)
		return false, fmt.Errorf("exchange: insufficient src balance")
	}
	debited := *srcWallet
	debited.Balance = newSrcBalance
	debited.BlockStamp = stamp
	if err := wallets.Upsert(ctx, &debited); err != nil {
		// reverse the credit.
		_ = wallets.Upsert(ctx, dstWallet)
		return false, fmt.Errorf("debit src: %w", err)
	}
	return true, nil
}
