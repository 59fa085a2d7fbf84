package json

import (
	"context"
	"errors"
	"net/http"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/types"
)

const serviceName = "fastlane"

// Application executes signed messages and answers queries.
type Application interface {
	ExecuteSigned(ctx context.Context, tx types.SignedExecute) (*types.Response, error)
	Query(ctx context.Context, msg types.QueryMsg) (any, error)
}

func getServiceName(method string) string {
	return serviceName + "." + method
}

// GetHTTPHandler returns the handler serving app: JSON-RPC on POST / and
// read-only query routes on GET.
func GetHTTPHandler(app Application, logger log.Logger) (http.Handler, error) {
	s := gorillarpc.NewServer()
	aliases := map[string]string{
		"execute": getServiceName("Execute"),
		"query":   getServiceName("Query"),
		"health":  getServiceName("Health"),
	}
	s.RegisterCodec(NewMapperCodec(aliases), "application/json")
	svc := &service{app: app, logger: logger.With("module", "rpc")}
	if err := s.RegisterService(svc, serviceName); err != nil {
		return nil, err
	}
	return newHandler(svc, s), nil
}

type service struct {
	app    Application
	logger log.Logger
}

// Execute executes a signed execute message. The sender is the signer.
func (s *service) Execute(req *http.Request, args *ExecuteArgs, reply *ExecuteResult) error {
	resp, err := s.app.ExecuteSigned(req.Context(), types.SignedExecute(*args))
	if err != nil {
		return rpcError(err)
	}
	reply.Response = *resp
	return nil
}

// Query decodes and answers a query message.
func (s *service) Query(req *http.Request, args *QueryArgs, reply *QueryResult) error {
	msg, err := types.DecodeQueryMsg(args.Msg)
	if err != nil {
		return rpcError(err)
	}
	data, err := s.app.Query(req.Context(), msg)
	if err != nil {
		return rpcError(err)
	}
	reply.Data = data
	return nil
}

// Health reports that the service is up.
func (s *service) Health(req *http.Request, args *HealthArgs, reply *HealthResult) error {
	reply.Status = "ok"
	return nil
}

// rpcError maps err to a JSON-RPC error carrying its kind as data.
func rpcError(err error) *json2.Error {
	code := json2.E_SERVER
	switch {
	case errors.Is(err, types.ErrMalformedInput), errors.Is(err, types.ErrUnknownMessage):
		code = json2.E_BAD_PARAMS
	case errors.Is(err, types.ErrUnauthorized), errors.Is(err, types.ErrInvalidSequence):
		code = json2.E_INVALID_REQ
	}
	return &json2.Error{
		Code:    code,
		Message: err.Error(),
		Data:    types.ErrorKind(err),
	}
}
