package shared

import "fmt"

// Broker represents the executing venue for a trade or holding.
type Broker int

const (
	Paper Broker = iota
	Dhan
	Shoonya
	Binance
	CoinDCX
	CoinSwitch
)

// ExternalBrokers is the collection of all supported non-paper brokers.
var ExternalBrokers = []Broker{Dhan, Shoonya, Binance, CoinDCX, CoinSwitch}

// String stringifies the provided broker.
func (b *Broker) String() string {
	switch *b {
	case Paper:
		return "PAPER"
	case Dhan:
		return "DHAN"
	case Shoonya:
		return "SHOONYA"
	case Binance:
		return "BINANCE"
	case CoinDCX:
		return "COINDCX"
	case CoinSwitch:
		return "COINSWITCH"
	default:
		return "unknown"
	}
}

// ParseBroker parses a broker from the provided string.
func ParseBroker(str string) (Broker, error) {
	switch str {
	case "PAPER":
		return Paper, nil
	case "DHAN":
		return Dhan, nil
	case "SHOONYA":
		return Shoonya, nil
	case "BINANCE":
		return Binance, nil
	case "COINDCX":
		return CoinDCX, nil
	case "COINSWITCH":
		return CoinSwitch, nil
	default:
		return 0, fmt.Errorf("unknown broker: %s", str)
	}
}
