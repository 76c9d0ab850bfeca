package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/wallet"
)

const contractABI = `[
  {"type":"function","name":"submitProof","stateMutability":"nonpayable","inputs":[
    {"name":"proofId","type":"bytes32"},
    {"name":"epoch","type":"uint256"},
    {"name":"commitment","type":"bytes32"},
    {"name":"bandStability","type":"uint8"},
    {"name":"bandInflows","type":"uint8"},
    {"name":"bandRisk","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"getProofSummary","stateMutability":"view","inputs":[
    {"name":"proofId","type":"bytes32"}],"outputs":[
    {"name":"owner","type":"address"},
    {"name":"epoch","type":"uint256"},
    {"name":"commitment","type":"bytes32"},
    {"name":"bandStability","type":"uint8"},
    {"name":"bandInflows","type":"uint8"},
    {"name":"bandRisk","type":"uint8"},
    {"name":"isValid","type":"bool"},
    {"name":"createdAt","type":"uint256"}]},
  {"type":"event","name":"ProofSubmitted","inputs":[
    {"name":"proofId","type":"bytes32","indexed":true},
    {"name":"owner","type":"address","indexed":true},
    {"name":"epoch","type":"uint256","indexed":false},
    {"name":"commitment","type":"bytes32","indexed":false}]}
]`

// logLookback bounds the block range scanned when recovering a submission
// transaction from ProofSubmitted events.
const logLookback = 2_000_000

// Eth anchors proofs on the real contract over RPC. Reads go straight to the
// node; writes are signed and sent by the wallet provider, which owns the
// keys.
type Eth struct {
	client   *ethclient.Client
	contract common.Address
	provider wallet.Provider
	parsed   abi.ABI
	logger   zerolog.Logger
}

var _ Ledger = (*Eth)(nil)

func DialEth(rpcURL string, contract common.Address, provider wallet.Provider, logger zerolog.Logger) (*Eth, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}
	return NewEth(client, contract, provider, logger)
}

func NewEth(client *ethclient.Client, contract common.Address, provider wallet.Provider, logger zerolog.Logger) (*Eth, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	return &Eth{
		client:   client,
		contract: contract,
		provider: provider,
		parsed:   parsed,
		logger:   logger.With().Str("module", "ledger").Logger(),
	}, nil
}

func (l *Eth) SubmitProof(ctx context.Context, from common.Address, rec Record) (common.Hash, error) {
	if l.provider == nil {
		return common.Hash{}, types.ErrNoProvider
	}
	epoch := uint256.NewInt(rec.Epoch)
	data, err := l.parsed.Pack("submitProof",
		[32]byte(rec.ID),
		epoch.ToBig(),
		[32]byte(rec.Commitment),
		uint8(rec.Stability),
		uint8(rec.Inflows),
		uint8(rec.Risk),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack submitProof: %w", err)
	}

	tx, err := l.provider.SendTransaction(ctx, wallet.TxRequest{
		From: from,
		To:   l.contract,
		Data: data,
	})
	if err != nil {
		err = types.Classify(err)
		if errors.Is(err, types.ErrUserRejected) {
			return common.Hash{}, err
		}
		return common.Hash{}, fmt.Errorf("%w: %v", types.ErrLedgerWrite, err)
	}

	l.logger.Debug().
		Str("proof_id", rec.ID.Hex()).
		Str("tx", tx.Hex()).
		Msg("proof anchored")
	return tx, nil
}

func (l *Eth) GetProofSummary(ctx context.Context, id common.Hash) (*Summary, error) {
	data, err := l.parsed.Pack("getProofSummary", [32]byte(id))
	if err != nil {
		return nil, fmt.Errorf("pack getProofSummary: %w", err)
	}

	ret, err := l.client.CallContract(ctx, ethereum.CallMsg{
		To:   &l.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("getProofSummary call: %w", err)
	}

	vals, err := l.parsed.Unpack("getProofSummary", ret)
	if err != nil {
		return nil, fmt.Errorf("unpack getProofSummary: %w", err)
	}
	if len(vals) != 8 {
		return nil, fmt.Errorf("getProofSummary: unexpected return arity %d", len(vals))
	}

	owner := vals[0].(common.Address)
	if owner == (common.Address{}) {
		return nil, types.ErrNotFound
	}
	epoch, _ := uint256.FromBig(vals[1].(*big.Int))
	commitment := vals[2].([32]byte)
	createdAt := vals[7].(*big.Int)

	return &Summary{
		Owner:      owner,
		Epoch:      epoch.Uint64(),
		Commitment: common.Hash(commitment),
		Stability:  types.Band(vals[3].(uint8)),
		Inflows:    types.Band(vals[4].(uint8)),
		Risk:       types.Band(vals[5].(uint8)),
		Valid:      vals[6].(bool),
		CreatedAt:  time.Unix(createdAt.Int64(), 0).UTC(),
	}, nil
}

func (l *Eth) FindSubmissionTx(ctx context.Context, id common.Hash) (common.Hash, bool, error) {
	head, err := l.client.BlockNumber(ctx)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("block number: %w", err)
	}
	fromBlock := uint64(0)
	if head > logLookback {
		fromBlock = head - logLookback
	}

	logs, err := l.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{l.contract},
		Topics: [][]common.Hash{
			{l.parsed.Events["ProofSubmitted"].ID},
			{id},
		},
	})
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("filter ProofSubmitted: %w", err)
	}
	if len(logs) == 0 {
		return common.Hash{}, false, nil
	}
	return logs[len(logs)-1].TxHash, true, nil
}
