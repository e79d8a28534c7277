package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	registryABIJSON = `[
  {"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getAgent","outputs":[{"internalType":"bool","name":"isActive","type":"bool"},{"internalType":"uint8","name":"strategy","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"creationFee","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

	routerABIJSON = `[
  {"inputs":[{"internalType":"address","name":"user","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"}],"name":"executeProtection","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"executor","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`
)

var (
	registryABI abi.ABI
	routerABI   abi.ABI
)

func init() {
	var err error
	registryABI, err = abi.JSON(strings.NewReader(registryABIJSON))
	if err != nil {
		panic("failed to parse registry ABI: " + err.Error())
	}
	routerABI, err = abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		panic("failed to parse router ABI: " + err.Error())
	}
}
