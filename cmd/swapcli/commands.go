package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
)

// apiError is the error envelope the server returns.
type apiError struct {
	Code      string `json:"code"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = 30 * time.Second
	return rc.StandardClient()
}

// call performs an HTTP exchange with the server and decodes the JSON body
// into out, translating server error envelopes into errors.
func call(method, path string, body interface{}, out interface{}) error {
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := newClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ae apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&ae); decodeErr == nil && ae.Code != "" {
			return ae
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// withSpinner runs fn behind a terminal spinner.
func withSpinner(message string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	err := fn()
	s.Stop()
	return err
}

func newQuoteCmd() *cobra.Command {
	var (
		fromChain uint64
		toChain   uint64
		fromToken string
		toToken   string
		amount    string
		sender    string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch the best available quote for a swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"fromChainId": fromChain,
				"toChainId":   toChain,
				"fromToken":   fromToken,
				"toToken":     toToken,
				"amount":      amount,
				"sender":      sender,
			}

			var result struct {
				Provider    string      `json:"provider"`
				ProtocolFee json.Number `json:"protocolFee"`
				Quote       struct {
					EstimatedReceiveAmount json.Number `json:"estimatedReceiveAmount"`
					BridgeFee              json.Number `json:"bridgeFee"`
					GasFee                 json.Number `json:"gasFee"`
					ExchangeRate           float64     `json:"exchangeRate"`
					EstimatedDuration      int64       `json:"estimatedDuration"`
				} `json:"quote"`
			}

			err := withSpinner("fetching quote...", func() error {
				return call(http.MethodPost, "/quote", payload, &result)
			})
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Printf("Provider:  ")
			color.Green("%s", result.Provider)
			fmt.Printf("Receive:   %s\n", result.Quote.EstimatedReceiveAmount)
			fmt.Printf("Bridge fee: %s\n", result.Quote.BridgeFee)
			fmt.Printf("Gas fee:   %s\n", result.Quote.GasFee)
			if result.ProtocolFee != "" {
				fmt.Printf("Protocol fee: %s\n", result.ProtocolFee)
			}
			fmt.Printf("Rate:      %.6f\n", result.Quote.ExchangeRate)
			fmt.Printf("Duration:  %ds\n", result.Quote.EstimatedDuration)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&fromChain, "from-chain", 1, "origin chain id")
	cmd.Flags().Uint64Var(&toChain, "to-chain", 1, "destination chain id")
	cmd.Flags().StringVar(&fromToken, "from", "", "origin token symbol or address")
	cmd.Flags().StringVar(&toToken, "to", "", "destination token symbol or address")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in smallest units")
	cmd.Flags().StringVar(&sender, "sender", "", "sender address")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Providers []struct {
					Name      string `json:"name"`
					Available bool   `json:"available"`
					Breaker   string `json:"breaker"`
				} `json:"providers"`
			}
			if err := call(http.MethodGet, "/providers", nil, &result); err != nil {
				return err
			}

			for _, p := range result.Providers {
				if p.Available {
					color.Green("%-24s available (circuit %s)", p.Name, p.Breaker)
				} else {
					color.Red("%-24s unavailable (circuit %s)", p.Name, p.Breaker)
				}
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var (
		chainID      uint64
		providerName string
	)

	cmd := &cobra.Command{
		Use:   "status <txHash>",
		Short: "Check the status of a submitted swap transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("chainId", fmt.Sprintf("%d", chainID))
			if providerName != "" {
				q.Set("provider", providerName)
			}

			var result struct {
				TxHash  string `json:"txHash"`
				ChainID uint64 `json:"chainId"`
				Status  string `json:"status"`
			}
			path := "/tx/" + url.PathEscape(args[0]) + "?" + q.Encode()
			err := withSpinner("checking status...", func() error {
				return call(http.MethodGet, path, nil, &result)
			})
			if err != nil {
				return err
			}

			switch result.Status {
			case "COMPLETED":
				color.Green("%s: %s", result.TxHash, result.Status)
			case "FAILED":
				color.Red("%s: %s", result.TxHash, result.Status)
			default:
				color.Yellow("%s: %s", result.TxHash, result.Status)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&chainID, "chain", 1, "chain id the transaction was submitted on")
	cmd.Flags().StringVar(&providerName, "provider", "", "provider that prepared the swap")
	return cmd
}
