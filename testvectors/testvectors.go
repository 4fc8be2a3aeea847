// Package testvectors loads JSON accumulation fixtures and runs them
// through the engine, for use by golden tests and the reference CLI.
package testvectors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/engine"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/params"
	"github.com/jamaccumulate/accumulator/vmboundary"
)

// Vector is one golden test's input and expected output, deserialized from
// a JSON fixture file.
type Vector struct {
	Config  VectorConfig   `json:"config"`
	Slot    uint64         `json:"slot"`
	Entropy string         `json:"entropy"`
	Reports []VectorReport `json:"reports"`

	Expect VectorExpect `json:"expect"`
}

type VectorConfig struct {
	CoreCount       int `json:"core_count"`
	ValidatorsCount int `json:"validators_count"`
	EpochLength     int `json:"epoch_length"`
}

type VectorReport struct {
	PackageHash string         `json:"package_hash"`
	CoreIndex   int            `json:"core_index"`
	Results     []VectorResult `json:"results"`
}

type VectorResult struct {
	ServiceID     uint32 `json:"service_id"`
	CodeHash      string `json:"code_hash"`
	PayloadHash   string `json:"payload_hash"`
	AccumulateGas uint64 `json:"accumulate_gas"`
}

type VectorExpect struct {
	AccumulatedCount int    `json:"accumulated_count"`
	AccumulateRoot   string `json:"accumulate_root"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testvectors: read %q: %w", path, err)
	}
	var v Vector
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("testvectors: parse %q: %w", path, err)
	}
	return &v, nil
}

// ToWorkReports converts the fixture's JSON reports into engine input.
func (v *Vector) ToWorkReports() ([]jamtypes.WorkReport, error) {
	out := make([]jamtypes.WorkReport, len(v.Reports))
	for i, r := range v.Reports {
		pkgHash, err := decodeHash(r.PackageHash)
		if err != nil {
			return nil, err
		}
		results := make([]jamtypes.WorkResult, len(r.Results))
		for j, res := range r.Results {
			codeHash, err := decodeHash(res.CodeHash)
			if err != nil {
				return nil, err
			}
			payloadHash, err := decodeHash(res.PayloadHash)
			if err != nil {
				return nil, err
			}
			results[j] = jamtypes.WorkResult{
				ServiceID:     ids.ServiceId(res.ServiceID),
				CodeHash:      codeHash,
				PayloadHash:   payloadHash,
				AccumulateGas: res.AccumulateGas,
			}
		}
		out[i] = jamtypes.WorkReport{
			PackageSpec: jamtypes.PackageSpec{Hash: pkgHash},
			CoreIndex:   r.CoreIndex,
			Results:     results,
		}
	}
	return out, nil
}

func decodeHash(s string) (jamtypes.Hash32, error) {
	var out jamtypes.Hash32
	if s == "" {
		return out, nil
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("testvectors: decode hash %q: %w", s, err)
	}
	copy(out[:], data)
	return out, nil
}

// Run executes the vector's reports against a freshly constructed context
// and ScriptedVM with no programs registered (every invoked service runs as
// a no-op and consumes no gas) — enough to exercise batch
// selection, gas accounting, and the Merkle commitment end to end.
func Run(v *Vector) (*engine.Result, error) {
	cfg := params.DefaultConfig
	if v.Config.CoreCount > 0 {
		cfg.CoreCount = v.Config.CoreCount
	}
	if v.Config.ValidatorsCount > 0 {
		cfg.ValidatorsCount = v.Config.ValidatorsCount
	}
	if v.Config.EpochLength > 0 {
		cfg.EpochLength = v.Config.EpochLength
	}

	entropy, err := decodeHash(v.Entropy)
	if err != nil {
		return nil, err
	}

	reports, err := v.ToWorkReports()
	if err != nil {
		return nil, err
	}

	accounts := make(map[ids.ServiceId]*jamtypes.ServiceAccount)
	for _, r := range reports {
		for _, res := range r.Results {
			if _, ok := accounts[res.ServiceID]; !ok {
				acc := jamtypes.NewServiceAccount()
				acc.Balance = 1 << 30
				accounts[res.ServiceID] = acc
			}
		}
	}

	privileges := jamtypes.NewPrivileges(cfg.CoreCount)
	validatorKeys := make(jamtypes.ValidatorKeys, cfg.ValidatorsCount)
	authQueue := jamtypes.NewAuthorizerQueue(cfg.CoreCount, params.DefaultConfig.MaxAuthorizationsQueueItems)

	ctx := accctx.New(validatorKeys, authQueue, privileges, accounts, v.Slot, entropy)
	history := jamtypes.NewAccumulationHistory(cfg.EpochLength)

	vm := vmboundary.NewScriptedVM(vmboundary.NewByteMemory(1 << 16))

	return engine.Execute(ctx, vm, reports, history, cfg, ids.ServiceId(params.MinPublicServiceID))
}
