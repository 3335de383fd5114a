package services

import "strings"

// Client is an execution client implementation.
type Client string

const (
	ClientUnknown    Client = "unknown"
	ClientGeth       Client = "geth"
	ClientAnvil      Client = "anvil"
	ClientHardhat    Client = "hardhat"
	ClientGanache    Client = "ganache"
	ClientBesu       Client = "besu"
	ClientNethermind Client = "nethermind"
	ClientErigon     Client = "erigon"
	ClientReth       Client = "reth"
)

var knownClients = []Client{
	ClientGeth,
	ClientAnvil,
	ClientHardhat,
	ClientGanache,
	ClientBesu,
	ClientNethermind,
	ClientErigon,
	ClientReth,
}

// ClientFromString maps a web3_clientVersion string to a Client.
func ClientFromString(version string) Client {
	lower := strings.ToLower(version)

	for _, client := range knownClients {
		if strings.Contains(lower, string(client)) {
			return client
		}
	}

	// ganache reports itself as EthereumJS TestRPC.
	if strings.Contains(lower, "testrpc") {
		return ClientGanache
	}

	return ClientUnknown
}
