package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/rollkit/fastlane/pkg/signer"
	rpcjson "github.com/rollkit/fastlane/rpc/json"
	"github.com/rollkit/fastlane/types"
)

// Client calls the fastlane JSON-RPC API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Execute signs msg with s at the signer's next sequence and submits it
// with funds attached.
func (c *Client) Execute(ctx context.Context, s signer.Signer, funds []types.Coin, msg types.ExecuteMsg) (*types.Response, error) {
	account, err := c.Account(ctx, signer.Address(s))
	if err != nil {
		return nil, err
	}
	tx, err := types.SignExecute(s, account.Sequence, funds, msg)
	if err != nil {
		return nil, err
	}
	var reply rpcjson.ExecuteResult
	if err := c.call(ctx, "execute", rpcjson.ExecuteArgs(tx), &reply); err != nil {
		return nil, err
	}
	return &reply.Response, nil
}

// Account returns the next sequence of address.
func (c *Client) Account(ctx context.Context, address string) (types.AccountResponse, error) {
	var account types.AccountResponse
	err := c.Query(ctx, types.Account{Address: address}, &account)
	return account, err
}

// Query runs msg and decodes the answer into out.
func (c *Client) Query(ctx context.Context, msg types.QueryMsg, out any) error {
	raw, err := types.EncodeQueryMsg(msg)
	if err != nil {
		return err
	}
	var reply struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.call(ctx, "query", rpcjson.QueryArgs{Msg: raw}, &reply); err != nil {
		return err
	}
	return json.Unmarshal(reply.Data, out)
}

// Health returns the server status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var reply rpcjson.HealthResult
	if err := c.call(ctx, "health", rpcjson.HealthArgs{}, &reply); err != nil {
		return "", err
	}
	return reply.Status, nil
}

func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
