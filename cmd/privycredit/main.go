package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/privycredit/privycredit/config"
	"github.com/privycredit/privycredit/httpapi"
	"github.com/privycredit/privycredit/ledger"
	"github.com/privycredit/privycredit/lifecycle"
	"github.com/privycredit/privycredit/seal"
	"github.com/privycredit/privycredit/share"
	"github.com/privycredit/privycredit/store"
	"github.com/privycredit/privycredit/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "privycredit",
		Short:         "Privacy-preserving creditworthiness proofs",
		Long:          "Generate, anchor, share and verify band-only creditworthiness proofs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newProveCmd(opts))
	cmd.AddCommand(newShareCmd(opts))
	cmd.AddCommand(newVerifyCmd(opts))
	return cmd
}

func newLogger(opts *rootOptions) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

// openStack wires the persistence tier and resolver from the environment.
func openStack(cfg config.Config, logger zerolog.Logger) (*store.Store, *share.Resolver, error) {
	key, err := cfg.StoreKey()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.DBPath, key)
	if err != nil {
		return nil, nil, err
	}

	var grants share.GrantStore = st
	if cfg.RedisAddr != "" {
		rg, err := share.NewRedisGrants(cfg.RedisAddr, "", cfg.RedisDB, time.Now)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		grants = rg
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis grant store")
	}

	var anchor ledger.Ledger
	if cfg.ContractAddr != "" {
		if !common.IsHexAddress(cfg.ContractAddr) {
			st.Close()
			return nil, nil, fmt.Errorf("bad contract address: %s", cfg.ContractAddr)
		}
		eth, err := ledger.DialEth(cfg.RPCURL, common.HexToAddress(cfg.ContractAddr), nil, logger)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("ledger: %w", err)
		}
		anchor = eth
		logger.Info().Str("contract", cfg.ContractAddr).Msg("ledger reads enabled")
	}

	resolver := share.NewResolver(grants, st, anchor, cfg.BaseURL, logger)
	return st, resolver, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the verification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts)
			cfg := config.FromEnv()

			st, resolver, err := openStack(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			return httpapi.NewServer(resolver, st, logger).Run(cfg.HTTPAddr)
		},
	}
}

func newProveCmd(opts *rootOptions) *cobra.Command {
	var ownerHex, bands string
	var attest bool

	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Generate and store a proof for an owner address",
		Long: `Generate a creditworthiness proof for the given owner.

Bands come from the demo summarizer unless --bands gives three explicit
letters (stability, inflows, risk), e.g. --bands AAB. With --attest a
groth16 consistency proof is generated for the commitment. Anchoring
needs a wallet session and is not available from the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts)
			cfg := config.FromEnv()

			if !common.IsHexAddress(ownerHex) {
				return fmt.Errorf("bad owner address: %s", ownerHex)
			}
			owner := common.HexToAddress(ownerHex)

			f, err := resolveFactors(cmd.Context(), owner, bands)
			if err != nil {
				return err
			}

			st, _, err := openStack(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			created := time.Now().UTC()
			epoch := types.EpochOf(created)
			sealed := seal.Seal(owner, epoch, f)
			if attest {
				logger.Info().Msg("compiling consistency circuit")
				if err := seal.CompileCircuit(); err != nil {
					return err
				}
				if err := sealed.Attest(f); err != nil {
					return err
				}
			}
			proof := &types.Proof{
				ID:         sealed.ID,
				Owner:      owner,
				Epoch:      epoch,
				Factors:    f,
				Commitment: sealed.Commitment,
				CreatedAt:  created,
				ExpiresAt:  created.Add(types.ValidityWindow),
			}
			if err := st.PutProof(cmd.Context(), proof); err != nil {
				return err
			}
			if _, err := st.UpsertUser(cmd.Context(), owner); err != nil {
				return err
			}

			out := map[string]any{
				"id":         proof.ID.Hex(),
				"status":     proof.Status(),
				"stability":  f.Stability,
				"inflows":    f.Inflows,
				"risk":       f.Risk,
				"expires_at": proof.ExpiresAt,
			}
			if attest {
				out["consistency_proof"] = hexutil.Encode(sealed.ZKProof)
			}
			return printJSON(out)
		},
	}

	cmd.Flags().StringVar(&ownerHex, "owner", "", "owner wallet address (required)")
	cmd.Flags().StringVar(&bands, "bands", "", "explicit bands, three letters in {A,B,C}")
	cmd.Flags().BoolVar(&attest, "attest", false, "attach a groth16 consistency proof")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func resolveFactors(ctx context.Context, owner common.Address, bands string) (types.Factors, error) {
	if bands == "" {
		return lifecycle.NewDemo(time.Now().UnixNano()).Summarize(ctx, owner)
	}
	if len(bands) != 3 {
		return types.Factors{}, fmt.Errorf("bands must be three letters, got %q", bands)
	}
	var f types.Factors
	var err error
	if f.Stability, err = types.ParseBand(bands[0:1]); err != nil {
		return types.Factors{}, err
	}
	if f.Inflows, err = types.ParseBand(bands[1:2]); err != nil {
		return types.Factors{}, err
	}
	if f.Risk, err = types.ParseBand(bands[2:3]); err != nil {
		return types.Factors{}, err
	}
	return f, nil
}

func newShareCmd(opts *rootOptions) *cobra.Command {
	var proofHex string

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Mint a share link for a stored proof",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts)
			cfg := config.FromEnv()

			st, resolver, err := openStack(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			grant, url, err := resolver.CreateShareLink(cmd.Context(), common.HexToHash(proofHex))
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"token":      grant.Token,
				"url":        url,
				"expires_at": grant.ExpiresAt,
			})
		},
	}

	cmd.Flags().StringVar(&proofHex, "proof", "", "proof id (required)")
	_ = cmd.MarkFlagRequired("proof")
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var verifier string

	cmd := &cobra.Command{
		Use:   "verify <token-or-id>",
		Short: "Resolve a share token or proof id into a verification view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts)
			cfg := config.FromEnv()

			st, resolver, err := openStack(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			view, err := resolver.Resolve(cmd.Context(), args[0], verifier)
			if err != nil {
				// terminal verification states render as views, not failures
				if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrExpired) || errors.Is(err, types.ErrRevoked) {
					return printJSON(map[string]any{
						"status": types.StatusNoApto,
						"reason": err.Error(),
					})
				}
				return err
			}
			return printJSON(view)
		},
	}

	cmd.Flags().StringVar(&verifier, "verifier", "", "verifier name recorded on the grant")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
