package chain

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// AddressSet is one coherent set of protection contract addresses.
type AddressSet struct {
	Registry common.Address
	Router   common.Address
	ChainID  int64 // 0 when unknown
	origin   string
}

// deploymentManifest mirrors the hardhat deployment artefact used as the
// secondary address source.
type deploymentManifest struct {
	Network struct {
		Name    string `json:"name"`
		ChainID int64  `json:"chainId"`
	} `json:"network"`
	Executor string `json:"executor"`
	Registry string `json:"VibeShieldRegistry"`
	Router   string `json:"VibeShieldRouter"`
}

// loadManifest reads and validates the deployment manifest file.
func loadManifest(path string) (AddressSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AddressSet{}, fmt.Errorf("read deployment manifest: %w", err)
	}

	var manifest deploymentManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return AddressSet{}, fmt.Errorf("parse deployment manifest: %w", err)
	}

	if !common.IsHexAddress(manifest.Registry) {
		return AddressSet{}, fmt.Errorf("deployment manifest: invalid registry address %q", manifest.Registry)
	}
	if !common.IsHexAddress(manifest.Router) {
		return AddressSet{}, fmt.Errorf("deployment manifest: invalid router address %q", manifest.Router)
	}

	return AddressSet{
		Registry: common.HexToAddress(manifest.Registry),
		Router:   common.HexToAddress(manifest.Router),
		ChainID:  manifest.Network.ChainID,
		origin:   "manifest",
	}, nil
}

// primarySet builds the address set from explicit configuration; both
// addresses must be present for the primary to count at all.
func (g *Gateway) primarySet() (AddressSet, bool) {
	if !common.IsHexAddress(g.opts.RegistryAddress) || !common.IsHexAddress(g.opts.RouterAddress) {
		return AddressSet{}, false
	}
	return AddressSet{
		Registry: common.HexToAddress(g.opts.RegistryAddress),
		Router:   common.HexToAddress(g.opts.RouterAddress),
		origin:   "config",
	}, true
}

// resolveAddresses picks the primary (config) set when it passes bytecode
// validation on the connected network, transparently swapping to the
// manifest fallback otherwise. The returned warning is non-fatal and empty
// on a clean primary resolution.
func (g *Gateway) resolveAddresses(ctx context.Context) (AddressSet, string, error) {
	primary, havePrimary := g.primarySet()
	if havePrimary {
		if err := g.validateSet(ctx, primary); err == nil {
			return primary, "", nil
		} else if g.opts.DeploymentPath == "" {
			return AddressSet{}, "", fmt.Errorf("configured addresses failed validation and no deployment manifest is set: %w", err)
		} else {
			g.logger.Warn().Err(err).Msg("configured addresses failed bytecode validation; trying deployment manifest")
		}
	}

	if g.opts.DeploymentPath == "" {
		return AddressSet{}, "", fmt.Errorf("no contract addresses configured: set registry/router addresses or a deployment manifest path")
	}

	fallback, err := loadManifest(g.opts.DeploymentPath)
	if err != nil {
		return AddressSet{}, "", err
	}
	if err := g.validateSet(ctx, fallback); err != nil {
		return AddressSet{}, "", fmt.Errorf("deployment manifest addresses failed validation: %w", err)
	}

	warning := ""
	if havePrimary {
		warning = "configured contract addresses failed validation; using deployment manifest fallback"
	}
	return fallback, warning, nil
}

// validateSet checks contract bytecode is present at both addresses.
func (g *Gateway) validateSet(ctx context.Context, set AddressSet) error {
	client, err := g.getClient(ctx)
	if err != nil {
		return err
	}

	for _, target := range []struct {
		label string
		addr  common.Address
	}{
		{"registry", set.Registry},
		{"router", set.Router},
	} {
		code, err := client.CodeAt(ctx, target.addr, nil)
		if err != nil {
			return fmt.Errorf("getCode %s: %w", target.label, err)
		}
		if len(code) == 0 {
			return fmt.Errorf("%s contract not found at %s (wrong network for this %s set?)", target.label, target.addr.Hex(), set.origin)
		}
	}
	return nil
}
