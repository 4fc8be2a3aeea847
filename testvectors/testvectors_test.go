package testvectors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunProcessesAllReportsAndProducesRoot(t *testing.T) {
	v := &Vector{
		Config: VectorConfig{CoreCount: 2, ValidatorsCount: 6, EpochLength: 12},
		Slot:   7,
		Reports: []VectorReport{
			{
				PackageHash: "aa00000000000000000000000000000000000000000000000000000000000a",
				CoreIndex:   0,
				Results: []VectorResult{
					{ServiceID: 70000, AccumulateGas: 100},
					{ServiceID: 70001, AccumulateGas: 100},
				},
			},
		},
	}

	result, err := Run(v)
	require.NoError(t, err)
	require.Equal(t, 1, result.AccumulatedCount)
	require.Len(t, result.InvokedServices, 2)
	require.NotEqual(t, [32]byte{}, [32]byte(result.AccumulateRoot))
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/a/vector.json")
	require.Error(t, err)
}

func TestDecodeHashRoundTrips(t *testing.T) {
	out, err := decodeHash("010000000000000000000000000000000000000000000000000000000000000f")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), out[0])
	require.Equal(t, byte(0x0f), out[31])
}
