package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
	"github.com/IsaacBoateng/Private-blockchain/pkg/chain"
	"github.com/IsaacBoateng/Private-blockchain/pkg/config"
	"github.com/IsaacBoateng/Private-blockchain/pkg/ownership"
	"github.com/IsaacBoateng/Private-blockchain/pkg/wallet"
)

func runChallengeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("challenge", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: notary challenge <address>")
		return 2
	}
	w := ownership.NewWorkflow(nil, nil)
	fmt.Fprintln(stdout, w.IssueChallenge(cmd.Arg(0)))
	return 0
}

func runSignCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("sign", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var scheme, key string
	cmd.StringVar(&scheme, "scheme", wallet.SchemeBitcoin, "Signature scheme: "+strings.Join(wallet.Schemes, ", "))
	cmd.StringVar(&key, "key", "", "Hex-encoded private key (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if key == "" || cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: notary sign --scheme <scheme> --key <hex> <message>")
		return 2
	}

	signer, err := wallet.NewSigner(scheme, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	sig, err := signer.SignMessage(cmd.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, sig)
	return 0
}

func runKeygenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var scheme string
	var jsonOutput bool
	cmd.StringVar(&scheme, "scheme", wallet.SchemeBitcoin, "Signature scheme: "+strings.Join(wallet.Schemes, ", "))
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	signer, err := wallet.GenerateSigner(scheme)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		_ = json.NewEncoder(stdout).Encode(map[string]string{
			"scheme":     scheme,
			"address":    signer.Address(),
			"privateKey": signer.PrivateKey(),
		})
		return 0
	}
	fmt.Fprintf(stdout, "address:     %s\n", signer.Address())
	fmt.Fprintf(stdout, "private key: %s\n", signer.PrivateKey())
	return 0
}

func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	alg, err := block.ParseAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	blocks, err := st.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	descriptors := chain.Descriptors(chain.AuditBlocks(blocks, alg))

	if jsonOutput {
		_ = json.NewEncoder(stdout).Encode(map[string]any{
			"blocks": len(blocks),
			"valid":  len(descriptors) == 0,
			"errors": descriptors,
		})
	} else {
		for _, d := range descriptors {
			fmt.Fprintf(stdout, "%s✗%s %s\n", ColorRed, ColorReset, d)
		}
		if len(descriptors) == 0 {
			fmt.Fprintf(stdout, "%s✓%s %d blocks, chain is valid\n", ColorGreen, ColorReset, len(blocks))
		}
	}
	if len(descriptors) > 0 {
		return 1
	}
	return 0
}

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("health", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var url string
	cmd.StringVar(&url, "url", "", "Health endpoint (default http://localhost:$PORT/health)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if url == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(stderr, "config: %v\n", err)
			return 2
		}
		url = fmt.Sprintf("http://localhost:%s/health", cfg.Port)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	fmt.Fprintln(stdout, "OK")
	return 0
}
