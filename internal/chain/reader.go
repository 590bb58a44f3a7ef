package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/Fantasim/crowdfund/internal/provider"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Reader reads campaign state from the crowdfunding contract over JSON-RPC.
type Reader struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
	guard    *provider.Guard
	rpcURL   string
}

type campaignOutput struct {
	Creator      common.Address
	Title        string
	Description  string
	MetadataHash string
	TargetAmount *big.Int
	RaisedAmount *big.Int
	Deadline     *big.Int
	CreatedAt    *big.Int
	Active       bool
	Withdrawn    bool
}

type contributionsOutput struct {
	Contributors []common.Address
	Amounts      []*big.Int
	Timestamps   []*big.Int
}

// NewReader dials rpcURL and binds the reader to the contract at contractAddress.
// rps bounds the number of eth_call requests per second.
func NewReader(rpcURL, contractAddress string, rps int) (*Reader, error) {
	parsed, err := ContractABI()
	if err != nil {
		return nil, err
	}

	slog.Info("contract reader connecting",
		"rpcURL", rpcURL,
		"contract", contractAddress,
	)

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}

	return &Reader{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		abi:      parsed,
		guard:    provider.NewGuard("rpc", rps),
		rpcURL:   rpcURL,
	}, nil
}

// Close closes the underlying ethclient connection.
func (r *Reader) Close() {
	r.client.Close()
	slog.Info("contract reader closed", "rpcURL", r.rpcURL)
}

// CircuitState reports the state of the RPC circuit breaker.
func (r *Reader) CircuitState() string {
	return r.guard.Breaker().State()
}

// VerifyNetwork checks that the RPC endpoint serves the configured network.
func (r *Reader) VerifyNetwork(ctx context.Context, network models.NetworkMode) error {
	want := int64(config.ChainIDSepolia)
	if network == models.NetworkMainnet {
		want = config.ChainIDMainnet
	}

	var got *big.Int
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		id, err := r.client.ChainID(ctx)
		if err != nil {
			return err
		}
		got = id
		return nil
	})
	if err != nil {
		return config.NewTransientError(fmt.Errorf("%w: eth_chainId: %v", config.ErrProviderUnavailable, err))
	}

	if got.Cmp(big.NewInt(want)) != 0 {
		return fmt.Errorf("%w: expected chain id %d for %s, got %s", config.ErrNetworkMismatch, want, network, got)
	}
	slog.Info("rpc network verified", "network", network, "chainID", got.String())
	return nil
}

// CampaignCount returns the number of campaigns ever created on the contract.
func (r *Reader) CampaignCount(ctx context.Context) (uint64, error) {
	var count *big.Int
	if err := r.call(ctx, &count, methodCampaignCount); err != nil {
		return 0, err
	}
	if count == nil || !count.IsUint64() {
		return 0, fmt.Errorf("%w: campaignCount out of range", config.ErrMalformedResponse)
	}
	return count.Uint64(), nil
}

// GetCampaign reads one campaign. A zero creator address means the id was never used.
func (r *Reader) GetCampaign(ctx context.Context, id uint64) (*models.CampaignRecord, error) {
	var out campaignOutput
	err := r.call(ctx, &out, methodGetCampaign, new(big.Int).SetUint64(id))
	if errors.Is(err, config.ErrCallReverted) {
		return nil, fmt.Errorf("%w: campaign %d: %v", config.ErrCampaignNotFound, id, err)
	}
	if err != nil {
		return nil, err
	}

	if out.Creator == (common.Address{}) {
		return nil, fmt.Errorf("%w: campaign %d", config.ErrCampaignNotFound, id)
	}

	deadline, err := toInt64("deadline", out.Deadline)
	if err != nil {
		return nil, err
	}
	createdAt, err := toInt64("createdAt", out.CreatedAt)
	if err != nil {
		return nil, err
	}
	if out.TargetAmount == nil || out.RaisedAmount == nil {
		return nil, fmt.Errorf("%w: campaign %d missing amounts", config.ErrMalformedResponse, id)
	}

	record := &models.CampaignRecord{
		ID:           strconv.FormatUint(id, 10),
		Creator:      strings.ToLower(out.Creator.Hex()),
		Title:        out.Title,
		Description:  out.Description,
		MetadataHash: out.MetadataHash,
		TargetAmount: out.TargetAmount,
		RaisedAmount: out.RaisedAmount,
		Deadline:     deadline,
		CreatedAt:    createdAt,
		Active:       out.Active,
		Withdrawn:    out.Withdrawn,
	}

	slog.Debug("campaign read",
		"id", id,
		"raised", record.RaisedAmount.String(),
		"target", record.TargetAmount.String(),
	)
	return record, nil
}

// GetContributions reads the contribution log of a campaign in contract order.
// A zero timestamp marks an entry that has not been confirmed yet.
func (r *Reader) GetContributions(ctx context.Context, id uint64) ([]models.ContributionEvent, error) {
	var out contributionsOutput
	err := r.call(ctx, &out, methodGetContributions, new(big.Int).SetUint64(id))
	if errors.Is(err, config.ErrCallReverted) {
		return nil, fmt.Errorf("%w: campaign %d: %v", config.ErrCampaignNotFound, id, err)
	}
	if err != nil {
		return nil, err
	}

	n := len(out.Contributors)
	if len(out.Amounts) != n || len(out.Timestamps) != n {
		return nil, fmt.Errorf("%w: campaign %d contribution arrays differ in length (%d/%d/%d)",
			config.ErrMalformedResponse, id, n, len(out.Amounts), len(out.Timestamps))
	}

	events := make([]models.ContributionEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := models.ContributionEvent{
			Contributor: strings.ToLower(out.Contributors[i].Hex()),
			Amount:      out.Amounts[i],
		}
		if ts := out.Timestamps[i]; ts != nil && ts.Sign() > 0 {
			v, err := toInt64("timestamp", ts)
			if err != nil {
				return nil, err
			}
			ev.Timestamp = models.Int64Ptr(v)
		}
		events = append(events, ev)
	}

	slog.Debug("contributions read", "id", id, "count", n)
	return events, nil
}

// GetContribution reads the on-chain running total for one contributor.
func (r *Reader) GetContribution(ctx context.Context, id uint64, contributor string) (*big.Int, error) {
	var total *big.Int
	err := r.call(ctx, &total, methodGetContribution, new(big.Int).SetUint64(id), common.HexToAddress(contributor))
	if err != nil {
		return nil, err
	}
	if total == nil {
		return big.NewInt(0), nil
	}
	return total, nil
}

// call packs the method arguments, runs eth_call through the guard and unpacks into out.
// Reverts are reported as ErrCallReverted and do not count against the circuit breaker.
func (r *Reader) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	input, err := r.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	var (
		raw      []byte
		reverted error
	)
	err = r.guard.Do(ctx, func(ctx context.Context) error {
		res, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: input}, nil)
		if err != nil {
			if isRevert(err) {
				reverted = err
				return nil
			}
			return err
		}
		raw = res
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", method, ctx.Err())
		}
		slog.Warn("contract call failed",
			"method", method,
			"error", err,
		)
		if errors.Is(err, config.ErrCircuitOpen) {
			return config.NewTransientErrorWithRetry(err, config.CircuitBreakerCooldown)
		}
		return config.NewTransientError(fmt.Errorf("%w: %s: %v", config.ErrProviderUnavailable, method, err))
	}
	if reverted != nil {
		return fmt.Errorf("%w: %s: %v", config.ErrCallReverted, method, reverted)
	}

	if err := r.abi.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("%w: %s: %v", config.ErrMalformedResponse, method, err)
	}
	return nil
}

// isRevert reports whether err is an execution error returned by the node,
// as opposed to a transport failure.
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func toInt64(field string, v *big.Int) (int64, error) {
	if v == nil || !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", config.ErrMalformedResponse, field)
	}
	return v.Int64(), nil
}
