package testutils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNewTransactor(t *testing.T) {
	a := NewTransactor(t)
	b := NewTransactor(t)

	assert.NotEqual(t, common.Address{}, a.From)
	assert.NotEqual(t, a.From, b.From)
	assert.NotNil(t, a.Signer)
}

func TestAddressAndEther(t *testing.T) {
	assert.Equal(t, common.HexToAddress("0x0000000000000000000000000000000000000007"), Address(7))
	assert.Equal(t, "3000000000000000000", Ether(3).String())
}
