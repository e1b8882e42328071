// Package sanitize filters prepared transaction bundles down to the subset
// executable on the request's origin chain. Some providers return multi-chain
// bundles (a destination-chain claim step, for example) that a non-custodial
// execution model cannot submit on the user's behalf.
package sanitize

import (
	"github.com/sirupsen/logrus"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// ForChain partitions transactions into those executable on the origin chain
// and those discarded for targeting other chains. Discards are logged.
func ForChain(txs []model.Transaction, originChainID uint64) (executable, discarded []model.Transaction) {
	executable = make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.ChainID == originChainID {
			executable = append(executable, tx)
			continue
		}
		discarded = append(discarded, tx)
		logrus.WithFields(logrus.Fields{
			"txChainId":     tx.ChainID,
			"originChainId": originChainID,
			"label":         tx.Label,
		}).Warn("Discarding transaction targeting a non-origin chain")
	}
	return executable, discarded
}

// Prepared sanitizes a prepared swap in place. An empty executable set is a
// provider error, never a silent empty success.
func Prepared(prepared *model.PreparedSwap, originChainID uint64) error {
	executable, discarded := ForChain(prepared.Transactions, originChainID)
	if len(executable) == 0 {
		return swaperr.Newf(swaperr.CodeProviderError,
			"provider %s returned no transactions executable on chain %d",
			prepared.Provider, originChainID).
			WithDetail("provider", prepared.Provider).
			WithDetail("originChainId", originChainID).
			WithDetail("discardedCount", len(discarded))
	}
	prepared.Transactions = executable
	return nil
}
