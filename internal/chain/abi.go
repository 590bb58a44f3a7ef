package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// crowdfundABI is the read-only surface of the crowdfunding contract used by the service.
const crowdfundABI = `[
	{"type":"function","name":"campaignCount","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCampaign","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint256"}],
	 "outputs":[
		{"name":"creator","type":"address"},
		{"name":"title","type":"string"},
		{"name":"description","type":"string"},
		{"name":"metadataHash","type":"string"},
		{"name":"targetAmount","type":"uint256"},
		{"name":"raisedAmount","type":"uint256"},
		{"name":"deadline","type":"uint256"},
		{"name":"createdAt","type":"uint256"},
		{"name":"active","type":"bool"},
		{"name":"withdrawn","type":"bool"}]},
	{"type":"function","name":"getCampaignContributions","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint256"}],
	 "outputs":[
		{"name":"contributors","type":"address[]"},
		{"name":"amounts","type":"uint256[]"},
		{"name":"timestamps","type":"uint256[]"}]},
	{"type":"function","name":"getContribution","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint256"},{"name":"contributor","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const (
	methodCampaignCount    = "campaignCount"
	methodGetCampaign      = "getCampaign"
	methodGetContributions = "getCampaignContributions"
	methodGetContribution  = "getContribution"
)

// ContractABI parses the embedded contract ABI.
func ContractABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(crowdfundABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse contract abi: %w", err)
	}
	return parsed, nil
}
