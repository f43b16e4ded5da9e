package outbox

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/NordCoder/Tally/internal/domain/outbox"
	"github.com/NordCoder/Tally/internal/obs/retry"
)

// errMalformed marks payloads that will never decode; retrying them is pointless.
var errMalformed = errors.New("malformed outbox payload")

func WrapKindHandler(h outbox.KindHandler, p retry.Policy) outbox.KindHandler {
	retryable := p.Retryable
	p.Retryable = func(err error) bool {
		if errors.Is(err, errMalformed) {
			return false
		}
		if retryable != nil {
			return retryable(err)
		}
		return err != nil
	}
	return func(ctx context.Context, data []byte) error {
		return retry.Do(ctx, func() error {
			err := h(ctx, data)
			var syn *json.SyntaxError
			var typ *json.UnmarshalTypeError
			if errors.As(err, &syn) || errors.As(err, &typ) {
				return errors.Join(errMalformed, err)
			}
			return err
		}, p)
	}
}
