package testutils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// TestChainID is the chain id used by test transactors
var TestChainID = big.NewInt(1337)

// NewTransactor creates a signer for a freshly generated key
func NewTransactor(t *testing.T) *bind.TransactOpts {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	auth, err := bind.NewKeyedTransactorWithChainID(key, TestChainID)
	require.NoError(t, err)
	return auth
}

// Address returns a deterministic address whose last byte is n
func Address(n byte) common.Address {
	var a common.Address
	a[common.AddressLength-1] = n
	return a
}

// Ether returns n * 1e18
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
