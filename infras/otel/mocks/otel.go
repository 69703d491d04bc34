package mocks

import (
	"context"

	"meetroom/infras/otel"
)

// NewOtel returns a tracer whose scopes discard everything.
func NewOtel() otel.Otel {
	return nopOtel{}
}

func NewScope() otel.Scope {
	return nopScope{}
}

type nopOtel struct{}

func (nopOtel) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, nopScope{}
}

type nopScope struct{}

func (nopScope) End() {}
func (nopScope) TraceError(error) {}
func (nopScope) TraceIfError(*error) {}
func (nopScope) AddEvent(string) {}
func (nopScope) SetAttribute(string, any) {}
func (nopScope) SetAttributes(map[string]any) {}
