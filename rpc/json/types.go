package json

import (
	"encoding/json"

	"github.com/rollkit/fastlane/types"
)

// ExecuteArgs are the params of fastlane.Execute: an externally tagged
// execute message, e.g. {"slow_transfer": {...}}, signed by its sender.
type ExecuteArgs types.SignedExecute

// ExecuteResult is the result of fastlane.Execute.
type ExecuteResult struct {
	Response types.Response `json:"response"`
}

// QueryArgs are the params of fastlane.Query.
type QueryArgs struct {
	Msg json.RawMessage `json:"msg"`
}

// QueryResult is the result of fastlane.Query.
type QueryResult struct {
	Data any `json:"data"`
}

// HealthArgs are the params of fastlane.Health.
type HealthArgs struct{}

// HealthResult is the result of fastlane.Health.
type HealthResult struct {
	Status string `json:"status"`
}
