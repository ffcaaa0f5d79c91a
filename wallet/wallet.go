// Package wallet implements the offline-signing capability the voter
// hands unsigned tx payloads to: it only ever signs over (chain_id,
// account_number, sequence) and never talks to the chain itself.
package wallet

import (
	"github.com/classic-terra/oracle-voter/oracle"
)

// Wallet is the capability the voter depends on to turn an unsigned
// StdSignDoc into a SignedStdTx. It satisfies oracle.Signer.
type Wallet interface {
	oracle.Signer
	Address() string
}
