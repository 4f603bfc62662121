package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/uhyunpark/trading-ducky/params"
	"github.com/uhyunpark/trading-ducky/pkg/crypto"
	"github.com/uhyunpark/trading-ducky/pkg/exchange"
	"github.com/uhyunpark/trading-ducky/pkg/trade"
)

func main() {
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Step 1: Load the API wallet key, or generate a throwaway one
	var signer *crypto.Signer
	if key := os.Getenv("API_WALLET_KEY"); key != "" {
		signer, err = crypto.FromPrivateKeyHex(key)
	} else {
		fmt.Println("API_WALLET_KEY not set, generating new keypair...")
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer signer.Wipe()
	fmt.Printf("API wallet: %s\n\n", signer)

	// Step 2: Build order from form-shaped fields
	now := time.Now()
	order, err := trade.Build(trade.RawOrderFields{
		InstrumentID: "1",
		Side:         "b",
		PositionSide: "BOTH",
		Price:        "50000",
		Size:         "0.01",
		TimeInForce:  "GTC",
	}, func() time.Time { return now })
	if err != nil {
		fmt.Printf("Error building order: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Instrument: %d\n", order.InstrumentID)
	fmt.Printf("  Side: %s\n", order.Side)
	fmt.Printf("  Position side: %s\n", order.PositionSide)
	fmt.Printf("  Price: %s\n", order.Price)
	fmt.Printf("  Size: %s\n", order.Size)
	fmt.Printf("  TIF: %s\n", order.TimeInForce)
	fmt.Printf("  Expires: %s\n\n", time.UnixMilli(order.ExpiresAt).UTC().Format(time.RFC3339))

	// Step 3: Sign the one-order batch with EIP-712
	actions := crypto.NewActionSigner(crypto.DomainFromConfig(cfg.Signing))
	env, err := exchange.SignOrder(actions, signer, order, now)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}

	envJSON, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Signed Envelope (JSON):")
	fmt.Println(string(envJSON))
	fmt.Println()

	// Step 4: Show the typed data a wallet would display
	action, err := crypto.NewAction(trade.ActionPlaceOrder, env.Action, env.Nonce, order.ExpiresAt)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	typed, err := actions.TypedDataJSON(action)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("EIP-712 Typed Data:")
	fmt.Println(typed)
	fmt.Println()

	// Step 5: Verify signature
	fmt.Println("Verifying signature...")
	recovered, err := exchange.Recover(actions, env)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if recovered != signer.Address().Hex() {
		fmt.Println("✗ Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")
	fmt.Printf("  Signer: %s\n\n", recovered)

	network := cfg.Exchange.ResolveNetwork()
	fmt.Printf("To submit this order to %s:\n", network.Name)
	fmt.Printf("  POST %s%s\n", network.BaseURL, exchange.ExchangePath)
	fmt.Println("  Content-Type: application/json")
}
