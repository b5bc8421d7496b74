package shared

import "fmt"

// AssetType represents the market asset class of a tradeable instrument.
type AssetType int

const (
	Stock AssetType = iota
	MCX
	Forex
	Crypto
)

// AssetTypes is the collection of all supported asset classes.
var AssetTypes = []AssetType{Stock, MCX, Forex, Crypto}

// String stringifies the provided asset type.
func (a *AssetType) String() string {
	switch *a {
	case Stock:
		return "STOCK"
	case MCX:
		return "MCX"
	case Forex:
		return "FOREX"
	case Crypto:
		return "CRYPTO"
	default:
		return "unknown"
	}
}

// ParseAssetType parses an asset type from the provided string.
func ParseAssetType(str string) (AssetType, error) {
	switch str {
	case "STOCK":
		return Stock, nil
	case "MCX":
		return MCX, nil
	case "FOREX":
		return Forex, nil
	case "CRYPTO":
		return Crypto, nil
	default:
		return 0, fmt.Errorf("unknown asset type: %s", str)
	}
}
