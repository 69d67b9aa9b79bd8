// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/gogama/proxyx/proxy"
	"github.com/stretchr/testify/mock"
)

type mockSource struct {
	mock.Mock
}

func newMockSource(t *testing.T) *mockSource {
	m := &mockSource{}
	m.Test(t)
	return m
}

func (m *mockSource) Fetch(ctx context.Context) (proxy.Endpoint, error) {
	args := m.Called(ctx)
	return args.Get(0).(proxy.Endpoint), args.Error(1)
}

type mockWaiter struct {
	mock.Mock
}

func newMockWaiter(t *testing.T) *mockWaiter {
	m := &mockWaiter{}
	m.Test(t)
	return m
}

func (m *mockWaiter) Wait(s *State, f Failure) time.Duration {
	args := m.Called(s, f)
	return args.Get(0).(time.Duration)
}
