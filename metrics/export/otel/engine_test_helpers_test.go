package otel

import (
	"context"

	"github.com/MrEthical07/dualauth/credentials"
)

type emptyCredentials struct{}

func (emptyCredentials) LookupCredential(context.Context, string) (credentials.Record, error) {
	return credentials.Record{}, credentials.ErrNotFound
}
