package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	methodLandCount    = "getLandCount"
	methodLandByIndex  = "getLandByIndex"
	methodRegisterLand = "registerLand"
	methodVerifyLand   = "verifyLand"
)

const registryABIJSON = `[
  {"type":"function","name":"getLandCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getLandByIndex","stateMutability":"view",
   "inputs":[{"name":"index","type":"uint256"}],
   "outputs":[
     {"name":"landUid","type":"string"},
     {"name":"owner","type":"address"},
     {"name":"surveyNumber","type":"string"},
     {"name":"division","type":"string"},
     {"name":"district","type":"string"},
     {"name":"areaValue","type":"uint256"},
     {"name":"areaUnit","type":"string"},
     {"name":"gpsCoordinates","type":"string"},
     {"name":"documentHash","type":"string"},
     {"name":"registrationDate","type":"uint256"},
     {"name":"isVerified","type":"bool"}
   ]},
  {"type":"function","name":"registerLand","stateMutability":"nonpayable",
   "inputs":[
     {"name":"division","type":"string"},
     {"name":"district","type":"string"},
     {"name":"surveyNumber","type":"string"},
     {"name":"areaValue","type":"uint256"},
     {"name":"areaUnit","type":"string"},
     {"name":"gpsCoordinates","type":"string"},
     {"name":"documentHash","type":"string"}
   ],
   "outputs":[]},
  {"type":"function","name":"verifyLand","stateMutability":"nonpayable",
   "inputs":[{"name":"landUid","type":"string"}],"outputs":[]}
]`

var registryABI = mustParseABI(registryABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("ledger: parse registry abi: " + err.Error())
	}

	return parsed
}

// RegistryABI returns the land registry contract interface the gateway speaks.
func RegistryABI() abi.ABI {
	return registryABI
}
