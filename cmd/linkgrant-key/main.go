// Package main provides a one-shot utility for link-grant key generation.
//
// It emits the asymmetric keypair used by board link authorization checks.
package main

import (
	"os"

	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/config"
	"github.com/shxuryaaz/agilow-goal-forge/internal/tools/linkgrantkey"
)

func main() {
	if err := linkgrantkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate link grant key: %v", err)
	}
}
