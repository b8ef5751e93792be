package ops

import (
	"errors"
	"strings"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/session"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// failure shapes an error into the reportable Failure form. The kind
// follows the error taxonomy, except device-reported RPC errors which
// surface as CommandError so callers can tell a rejected command from a
// gateway-side problem.
func failure(device, op string, err error) *Result {
	kind := util.KindName(err)

	var rpcErr *session.RPCError
	if errors.As(err, &rpcErr) && !isTaxonomyError(err) {
		kind = "CommandError"
	}

	msg := util.NewOpError(err, device, op, err.Error()).Error()

	util.WithFields(map[string]interface{}{
		"operation": op,
		"device":    device,
		"kind":      kind,
	}).Errorf("%s", err)

	return &Result{Failure: &Failure{Kind: kind, Message: msg}}
}

// failureScrubbed is failure with credential material masked out of the
// message. Secrets can leak into errors through SSH banners or library
// messages, so every session-path failure goes through here.
func failureScrubbed(device, op string, err error, secrets []string) *Result {
	res := failure(device, op, err)
	for _, s := range secrets {
		if s == "" {
			continue
		}
		res.Failure.Message = strings.ReplaceAll(res.Failure.Message, s, "******")
	}
	return res
}

func isTaxonomyError(err error) bool {
	for _, sentinel := range []error{
		util.ErrConfig, util.ErrNotFound, util.ErrConnect,
		util.ErrTimeout, util.ErrTemplate, util.ErrCommit, util.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
