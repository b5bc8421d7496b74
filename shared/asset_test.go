package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestAssetTypeString(t *testing.T) {
	tests := []struct {
		name  string
		asset AssetType
		want  string
	}{
		{
			name:  "stock",
			asset: Stock,
			want:  "STOCK",
		},
		{
			name:  "mcx",
			asset: MCX,
			want:  "MCX",
		},
		{
			name:  "forex",
			asset: Forex,
			want:  "FOREX",
		},
		{
			name:  "crypto",
			asset: Crypto,
			want:  "CRYPTO",
		},
		{
			name:  "unknown",
			asset: AssetType(999),
			want:  "unknown",
		},
	}

	for _, test := range tests {
		str := test.asset.String()
		if str != test.want {
			t.Errorf("%s: expected asset type %s, got %s", test.name, test.want, str)
		}
	}
}

func TestParseAssetType(t *testing.T) {
	// Ensure all supported asset classes round trip through their
	// string forms.
	for _, asset := range AssetTypes {
		parsed, err := ParseAssetType(asset.String())
		assert.NoError(t, err)
		assert.Equal(t, asset, parsed)
	}

	// Ensure an unknown asset class string errors.
	_, err := ParseAssetType("BONDS")
	assert.Error(t, err)
}
